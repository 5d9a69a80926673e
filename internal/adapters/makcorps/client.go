// internal/adapters/makcorps/client.go
package makcorps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/adapters/retry"
	"tourism_assistant/internal/domain"
)

const maxAttempts = 3

var (
	ErrNotFound     = fmt.Errorf("makcorps: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("makcorps: %w", domain.ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("makcorps: %w", domain.ErrForbidden)
	ErrMalformed    = fmt.Errorf("makcorps: %w", domain.ErrMalformed)
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

var _ domain.HotelProvider = (*Client)(nil)

func New(base, key string, rps int, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// SearchCity calls GET /city and returns the hotel entries in provider order.
// Entries that are not JSON objects are skipped.
func (c *Client) SearchCity(ctx context.Context, q domain.CityQuery) ([]map[string]any, error) {
	v := url.Values{}
	v.Set("api_key", c.key)
	v.Set("cityid", q.CityID)
	v.Set("checkin", q.CheckIn)
	v.Set("checkout", q.CheckOut)
	v.Set("adults", strconv.Itoa(q.Adults))

	var raw []any
	if err := c.get(ctx, c.base+"/city?"+v.Encode(), &raw); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tourism-assistant/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("makcorps", "city", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && retry.SleepCtx(ctx, retry.Backoff(200*time.Millisecond, i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("makcorps", "city", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case retry.Retryable(resp.StatusCode):
			wait := retry.After(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = retry.Backoff(200*time.Millisecond, i)
			}
			lastErr = &domain.StatusError{Service: "makcorps", Code: resp.StatusCode}
			if i < maxAttempts-1 && retry.SleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.StatusError{Service: "makcorps", Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}
	return lastErr
}
