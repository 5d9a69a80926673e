// Package telegram is a minimal Bot API client: enough to answer webhook
// updates and to register the webhook itself.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/domain"
)

const DefaultBase = "https://api.telegram.org"

// Telegram rejects longer texts with 400.
const maxMessageLen = 4096

type Client struct {
	base  string
	token string
	hc    *http.Client
}

var _ domain.Messenger = (*Client)(nil)

func New(base, token string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if base == "" {
		base = DefaultBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{base: strings.TrimRight(base, "/"), token: token, hc: &http.Client{Timeout: timeout}}, nil
}

// Update is the subset of an incoming webhook update the assistant reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// TextMessage returns the chat id and text of a plain text message.
func (u Update) TextMessage() (int64, string, bool) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		return 0, "", false
	}
	return u.Message.Chat.ID, u.Message.Text, true
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if r := []rune(text); len(r) > maxMessageLen {
		text = string(r[:maxMessageLen])
	}
	return c.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text})
}

// SetWebhook points the bot at url; secret, when set, is echoed back by
// Telegram in X-Telegram-Bot-Api-Secret-Token on every update.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	body := map[string]any{"url": url, "allowed_updates": []string{"message"}}
	if secret != "" {
		body["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", body)
}

func (c *Client) call(ctx context.Context, method string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/bot"+c.token+"/"+method, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("telegram", method, 0, time.Since(start))
		// the request URL carries the token; keep it out of logs
		return fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("telegram", method, resp.StatusCode, time.Since(start))

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fmt.Errorf("telegram %s: %w: %v", method, domain.ErrMalformed, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("telegram %s: %w", method, domain.ErrUnauthorized)
	}
	if resp.StatusCode >= 300 || !ar.OK {
		return &domain.StatusError{Service: "telegram", Code: resp.StatusCode, Body: ar.Description}
	}
	return nil
}
