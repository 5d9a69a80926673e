package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/adapters/telegram"
	"tourism_assistant/internal/adapters/twiml"
	"tourism_assistant/internal/app"
	"tourism_assistant/internal/domain"
)

// ApologyReply is what users see when a reply could not be produced.
const ApologyReply = "Sorry, I'm having trouble right now."

const maxBodyBytes = 64 << 10

// sendTimeout bounds an outbound channel send; it runs on a fresh deadline so
// an apology still goes out after the request deadline has passed.
const sendTimeout = 10 * time.Second

type Assistant interface {
	ProcessMessage(ctx context.Context, message string) (domain.AssistantResult, error)
}

type Handlers struct {
	Assistant      Assistant
	Messenger      domain.Messenger // nil when no Telegram token is configured
	TelegramSecret string
	Model          string
	SearchMode     string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Platform  string `json:"platform"`
}

type chatResponse struct {
	Response  string              `json:"response"`
	SessionID string              `json:"session_id"`
	Status    string              `json:"status"`
	Hotels    []domain.HotelOffer `json:"hotels"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	SearchMode string `json:"search_mode"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/health", h.health)
	s.mux.Get("/healthz", h.health)
	s.mux.Post("/chat", h.chat)
	s.mux.Post("/telegram/webhook", h.telegramWebhook)
	s.mux.Post("/whatsapp/webhook", h.whatsappWebhook)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Model: h.Model, SearchMode: h.SearchMode})
}

func (h *Handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON object with a message field")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res, err := h.Assistant.ProcessMessage(r.Context(), req.Message)
	switch {
	case errors.Is(err, app.ErrEmptyMessage):
		writeProblem(w, http.StatusBadRequest, "Empty message", "message must not be empty")
		return
	case err != nil:
		log.Error().Err(err).Str("session_id", req.SessionID).Str("platform", req.Platform).
			Str("err_type", observability.LabelErr(err)).Msg("chat failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", ApologyReply)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  res.Response,
		SessionID: req.SessionID,
		Status:    "success",
		Hotels:    res.Hotels,
	})
}

func (h *Handlers) telegramWebhook(w http.ResponseWriter, r *http.Request) {
	if h.TelegramSecret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.TelegramSecret)) != 1 {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook secret")
			return
		}
	}

	var upd telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&upd); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a Telegram update")
		return
	}
	chatID, text, ok := upd.TextMessage()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if h.Messenger == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "telegram is not configured")
		return
	}

	reply, status := ApologyReply, "error"
	res, err := h.Assistant.ProcessMessage(r.Context(), text)
	if err != nil {
		log.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("telegram reply failed, sending apology")
	} else {
		reply, status = res.Response, "success"
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), sendTimeout)
	defer cancel()
	if err := h.Messenger.SendMessage(sctx, chatID, reply); err != nil {
		log.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("telegram send failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not deliver the reply")
		return
	}
	// a failed generation is still acknowledged so Telegram does not redeliver it
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// whatsappWebhook answers Twilio with TwiML. Every outcome is a 200 so the
// user always gets a message back.
func (h *Handlers) whatsappWebhook(w http.ResponseWriter, r *http.Request) {
	reply := ApologyReply

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("whatsapp form parse failed")
	} else {
		body := strings.TrimSpace(r.PostForm.Get("Body"))
		res, err := h.Assistant.ProcessMessage(r.Context(), body)
		if err != nil {
			log.Error().Err(err).Str("message_sid", r.PostForm.Get("MessageSid")).Msg("whatsapp reply failed")
		} else {
			reply = res.Response
		}
	}

	if err := twiml.Write(w, twiml.Reply(reply)); err != nil {
		log.Error().Err(err).Msg("write TwiML response failed")
	}
}
