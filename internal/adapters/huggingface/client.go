// Package huggingface talks to the hosted Inference API text-generation task.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/adapters/retry"
	"tourism_assistant/internal/domain"
)

const maxAttempts = 3

var ErrNoCompletion = errors.New("huggingface: empty completion")

type Client struct {
	base    string
	model   string
	key     string
	timeout time.Duration // whole call, retries included
	hc      *http.Client
	rl      *rate.Limiter
}

var _ domain.LanguageModel = (*Client)(nil)

func New(base, model, key string, rps int, timeout time.Duration) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if rps <= 0 {
		rps = 3
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		model:   model,
		key:     key,
		timeout: timeout,
		hc:      &http.Client{Timeout: timeout},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters generateParams `json:"parameters"`
	Options    generateOpts   `json:"options"`
}

type generateParams struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateOpts struct {
	WaitForModel bool `json:"wait_for_model"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

type apiError struct {
	Error string `json:"error"`
}

// Generate posts the prompt to /models/{model} and returns the first completion.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(generateRequest{
		Inputs:     prompt,
		Parameters: generateParams{MaxNewTokens: maxTokens, Temperature: temperature},
		Options:    generateOpts{WaitForModel: true},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	u := c.base + "/models/" + c.model

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("huggingface", "generate", 0, time.Since(start))
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && retry.SleepCtx(ctx, retry.Backoff(500*time.Millisecond, i)) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", lastErr
		}
		observability.ObserveExternal("huggingface", "generate", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			text, err := decodeGeneration(resp.Body)
			resp.Body.Close()
			return text, err

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return "", fmt.Errorf("huggingface: %w", domain.ErrUnauthorized)

		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return "", fmt.Errorf("huggingface: %w", domain.ErrForbidden)

		case retry.Retryable(resp.StatusCode):
			wait := retry.After(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = retry.Backoff(500*time.Millisecond, i)
			}
			lastErr = &domain.StatusError{Service: "huggingface", Code: resp.StatusCode}
			if i < maxAttempts-1 && retry.SleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			msg := strings.TrimSpace(string(b))
			var ae apiError
			if json.Unmarshal(b, &ae) == nil && ae.Error != "" {
				msg = ae.Error
			}
			return "", &domain.StatusError{Service: "huggingface", Code: resp.StatusCode, Body: msg}
		}
	}
	return "", lastErr
}

// decodeGeneration accepts both the list form and the single-object form.
func decodeGeneration(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return "", err
	}
	var list []generation
	if err := json.Unmarshal(b, &list); err == nil {
		for _, g := range list {
			if t := strings.TrimSpace(g.GeneratedText); t != "" {
				return t, nil
			}
		}
		return "", ErrNoCompletion
	}
	var one generation
	if err := json.Unmarshal(b, &one); err != nil {
		return "", fmt.Errorf("huggingface: %w: %v", domain.ErrMalformed, err)
	}
	if t := strings.TrimSpace(one.GeneratedText); t != "" {
		return t, nil
	}
	return "", ErrNoCompletion
}
