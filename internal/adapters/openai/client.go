// Package openaiad serves LanguageModel from any OpenAI-compatible chat endpoint.
package openaiad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/domain"
)

var ErrNoCompletion = errors.New("openai: no choices returned")

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	rl      *rate.Limiter
}

var _ domain.LanguageModel = (*Client)(nil)

// New builds a client; an empty base keeps the library default.
func New(base, key, model string, rps int, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if rps <= 0 {
		rps = 3
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	cfg := openai.DefaultConfig(key)
	if base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	})
	if err != nil {
		status := 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		observability.ObserveExternal("openai", "chat", status, time.Since(start))
		return "", mapError(err, status)
	}
	observability.ObserveExternal("openai", "chat", http.StatusOK, time.Since(start))

	for _, ch := range resp.Choices {
		if t := strings.TrimSpace(ch.Message.Content); t != "" {
			return t, nil
		}
	}
	return "", ErrNoCompletion
}

func mapError(err error, status int) error {
	switch status {
	case 0:
		return fmt.Errorf("openai: %w", err)
	case http.StatusUnauthorized:
		return fmt.Errorf("openai: %w: %v", domain.ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("openai: %w: %v", domain.ErrForbidden, err)
	}
	return &domain.StatusError{Service: "openai", Code: status, Body: err.Error()}
}
