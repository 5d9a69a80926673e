package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	httpserver "tourism_assistant/internal/adapters/http_server"
	"tourism_assistant/internal/app"
	"tourism_assistant/internal/domain"
)

// ---- fakes ----

type fakeAssistant struct {
	mu    sync.Mutex
	got   []string
	res   domain.AssistantResult
	err   error
	block bool // wait for the request deadline
}

func (f *fakeAssistant) ProcessMessage(ctx context.Context, msg string) (domain.AssistantResult, error) {
	f.mu.Lock()
	f.got = append(f.got, msg)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return domain.AssistantResult{}, ctx.Err()
	}
	if strings.TrimSpace(msg) == "" {
		return domain.AssistantResult{}, app.ErrEmptyMessage
	}
	return f.res, f.err
}

type sent struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	msgs []sent
	err  error
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.msgs = append(f.msgs, sent{chatID, text})
	return f.err
}

func newServer(h *httpserver.Handlers) http.Handler {
	return newServerWithTimeout(h, 0)
}

func newServerWithTimeout(h *httpserver.Handlers, d time.Duration) http.Handler {
	s := httpserver.New(httpserver.Options{Timeout: d, CORSOrigins: []string{"https://app.example.com"}})
	s.MountHandlers(h)
	return s.Mux()
}

func do(t *testing.T, h http.Handler, method, path, ctype, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func oneOffer() []domain.HotelOffer {
	r := 4.8
	return []domain.HotelOffer{{ID: "sim_001", Name: "Luxury Hotel in Rome", Rating: &r, Price: domain.NewPrice(250, "EUR"), Prices: []string{"250 EUR"}, Location: "Rome"}}
}

// ---- tests ----

func TestHealth(t *testing.T) {
	h := newServer(&httpserver.Handlers{Assistant: &fakeAssistant{}, Model: "m", SearchMode: "simulated"})
	for _, p := range []string{"/health", "/healthz"} {
		rec := do(t, h, http.MethodGet, p, "", "", nil)
		if rec.Code != 200 {
			t.Fatalf("%s: status %d", p, rec.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["status"] != "healthy" || body["model"] != "m" || body["search_mode"] != "simulated" {
			t.Fatalf("%s: unexpected body %v", p, body)
		}
	}
}

func TestChat_Success(t *testing.T) {
	a := &fakeAssistant{res: domain.AssistantResult{Response: "Here are two hotels.", Hotels: oneOffer()}}
	h := newServer(&httpserver.Handlers{Assistant: a})

	rec := do(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hotels in Rome","session_id":"abc","platform":"web"}`, nil)
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Response  string
		SessionID string `json:"session_id"`
		Status    string
		Hotels    []map[string]any
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Response != "Here are two hotels." || body.SessionID != "abc" || body.Status != "success" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(body.Hotels) != 1 || body.Hotels[0]["name"] != "Luxury Hotel in Rome" || body.Hotels[0]["rating"] != 4.8 {
		t.Fatalf("unexpected hotels: %v", body.Hotels)
	}
	if a.got[0] != "hotels in Rome" {
		t.Fatalf("assistant got %q", a.got[0])
	}
}

func TestChat_GeneratesSessionID(t *testing.T) {
	a := &fakeAssistant{res: domain.AssistantResult{Response: "hi", Hotels: []domain.HotelOffer{}}}
	h := newServer(&httpserver.Handlers{Assistant: a})

	rec := do(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hello"}`, nil)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if id, _ := body["session_id"].(string); len(id) != 36 {
		t.Fatalf("expected a uuid session id, got %v", body["session_id"])
	}
	if hotels, ok := body["hotels"].([]any); !ok || len(hotels) != 0 {
		t.Fatalf("expected empty hotels array, got %v", body["hotels"])
	}
}

func TestChat_BadRequests(t *testing.T) {
	h := newServer(&httpserver.Handlers{Assistant: &fakeAssistant{}})
	for _, body := range []string{`not json`, `{"message":"   "}`, `{}`} {
		rec := do(t, h, http.MethodPost, "/chat", "application/json", body, nil)
		if rec.Code != http.StatusBadRequest || rec.Header().Get("Content-Type") != "application/problem+json" {
			t.Fatalf("%s: got %d %s", body, rec.Code, rec.Header().Get("Content-Type"))
		}
	}
}

func TestChat_GenerationFailure(t *testing.T) {
	h := newServer(&httpserver.Handlers{Assistant: &fakeAssistant{err: errors.New("model down")}})
	rec := do(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hi"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	var p map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p["detail"] != httpserver.ApologyReply || strings.Contains(rec.Body.String(), "model down") {
		t.Fatalf("unexpected problem: %v", p)
	}
}

const textUpdate = `{"update_id":1,"message":{"message_id":5,"text":"hotels in Rome","chat":{"id":99,"type":"private"}}}`

func TestTelegram_RepliesThroughMessenger(t *testing.T) {
	a := &fakeAssistant{res: domain.AssistantResult{Response: "Two hotels found."}}
	m := &fakeMessenger{}
	h := newServer(&httpserver.Handlers{Assistant: a, Messenger: m, TelegramSecret: "s3"})

	rec := do(t, h, http.MethodPost, "/telegram/webhook", "application/json", textUpdate,
		map[string]string{"X-Telegram-Bot-Api-Secret-Token": "s3"})
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"success"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if len(m.msgs) != 1 || m.msgs[0].chatID != 99 || m.msgs[0].text != "Two hotels found." {
		t.Fatalf("unexpected sends: %+v", m.msgs)
	}
}

func TestTelegram_RejectsBadSecret(t *testing.T) {
	a := &fakeAssistant{}
	h := newServer(&httpserver.Handlers{Assistant: a, Messenger: &fakeMessenger{}, TelegramSecret: "s3"})

	for _, hdr := range []map[string]string{nil, {"X-Telegram-Bot-Api-Secret-Token": "wrong"}} {
		rec := do(t, h, http.MethodPost, "/telegram/webhook", "application/json", textUpdate, hdr)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	}
	if len(a.got) != 0 {
		t.Fatalf("assistant must not run for rejected updates")
	}
}

func TestTelegram_IgnoresNonText(t *testing.T) {
	a := &fakeAssistant{}
	m := &fakeMessenger{}
	h := newServer(&httpserver.Handlers{Assistant: a, Messenger: m})

	rec := do(t, h, http.MethodPost, "/telegram/webhook", "application/json", `{"update_id":2,"edited_message":{}}`, nil)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"ignored"`) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if len(a.got) != 0 || len(m.msgs) != 0 {
		t.Fatalf("nothing should run for ignored updates")
	}
}

func TestTelegram_GenerationFailureSendsApology(t *testing.T) {
	m := &fakeMessenger{}
	h := newServer(&httpserver.Handlers{Assistant: &fakeAssistant{err: errors.New("boom")}, Messenger: m})

	rec := do(t, h, http.MethodPost, "/telegram/webhook", "application/json", textUpdate, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected acknowledged failure, got %d %s", rec.Code, rec.Body.String())
	}
	if len(m.msgs) != 1 || m.msgs[0].chatID != 99 || m.msgs[0].text != httpserver.ApologyReply {
		t.Fatalf("expected apology to the chat, got %+v", m.msgs)
	}
}

func TestTelegram_Failures(t *testing.T) {
	cases := map[string]*httpserver.Handlers{
		"apology undeliverable": {Assistant: &fakeAssistant{err: errors.New("boom")}, Messenger: &fakeMessenger{err: errors.New("chat not found")}},
		"reply undeliverable":   {Assistant: &fakeAssistant{res: domain.AssistantResult{Response: "x"}}, Messenger: &fakeMessenger{err: errors.New("chat not found")}},
	}
	for name, hs := range cases {
		rec := do(t, newServer(hs), http.MethodPost, "/telegram/webhook", "application/json", textUpdate, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, rec.Code)
		}
	}

	rec := do(t, newServer(&httpserver.Handlers{Assistant: &fakeAssistant{}}), http.MethodPost, "/telegram/webhook", "application/json", textUpdate, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a messenger, got %d", rec.Code)
	}
}

func TestTelegram_ApologyAfterDeadline(t *testing.T) {
	m := &fakeMessenger{}
	h := newServerWithTimeout(&httpserver.Handlers{Assistant: &fakeAssistant{block: true}, Messenger: m}, 50*time.Millisecond)

	rec := do(t, h, http.MethodPost, "/telegram/webhook", "application/json", textUpdate, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(m.msgs) != 1 || m.msgs[0].text != httpserver.ApologyReply {
		t.Fatalf("expected apology to the chat, got %+v", m.msgs)
	}
}

func TestWhatsApp_TwiMLReply(t *testing.T) {
	a := &fakeAssistant{res: domain.AssistantResult{Response: "Rome has great hotels & more."}}
	h := newServer(&httpserver.Handlers{Assistant: a})

	form := url.Values{"From": {"whatsapp:+4366012345"}, "Body": {"hotels in Rome"}}
	rec := do(t, h, http.MethodPost, "/whatsapp/webhook", "application/x-www-form-urlencoded", form.Encode(), nil)
	if rec.Code != 200 || rec.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<Response><Message>Rome has great hotels &amp; more.</Message></Response>") {
		t.Fatalf("unexpected TwiML: %s", rec.Body.String())
	}
	if a.got[0] != "hotels in Rome" {
		t.Fatalf("assistant got %q", a.got[0])
	}
}

func TestWhatsApp_ApologyOnFailure(t *testing.T) {
	for name, a := range map[string]*fakeAssistant{
		"generation": {err: errors.New("boom")},
		"empty body": {},
	} {
		h := newServer(&httpserver.Handlers{Assistant: a})
		rec := do(t, h, http.MethodPost, "/whatsapp/webhook", "application/x-www-form-urlencoded", "From=whatsapp%3A%2B1", nil)
		if rec.Code != 200 {
			t.Fatalf("%s: status %d", name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Sorry, I&#39;m having trouble right now.") {
			t.Fatalf("%s: unexpected TwiML: %s", name, rec.Body.String())
		}
	}
}

func TestWhatsApp_ApologyOnDeadline(t *testing.T) {
	h := newServerWithTimeout(&httpserver.Handlers{Assistant: &fakeAssistant{block: true}}, 50*time.Millisecond)

	start := time.Now()
	rec := do(t, h, http.MethodPost, "/whatsapp/webhook", "application/x-www-form-urlencoded", "Body=hotels+in+Rome", nil)
	if time.Since(start) > time.Second {
		t.Fatalf("request outlived its deadline")
	}
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/xml" {
		t.Fatalf("got %d %q %s", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "<Message>Sorry, I&#39;m having trouble right now.</Message>") {
		t.Fatalf("unexpected TwiML: %s", rec.Body.String())
	}
}

func TestChat_ProblemOnDeadline(t *testing.T) {
	h := newServerWithTimeout(&httpserver.Handlers{Assistant: &fakeAssistant{block: true}}, 50*time.Millisecond)

	rec := do(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hi"}`, nil)
	if rec.Code != http.StatusInternalServerError || rec.Header().Get("Content-Type") != "application/problem+json" {
		t.Fatalf("got %d %q %s", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := newServer(&httpserver.Handlers{Assistant: &fakeAssistant{}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("unexpected preflight: %d %v", rec.Code, rec.Header())
	}

	rec = do(t, h, http.MethodGet, "/health", "", "", map[string]string{"Origin": "https://evil.example.com"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS header for a foreign origin")
	}
}
