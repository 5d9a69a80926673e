package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"tourism_assistant/internal/domain"
)

// ---- fakes ----

type fakeLLM struct {
	mu          sync.Mutex
	prompts     []string
	temperature float64
	reply       func(prompt string) string
	err         error
	block       bool // wait for ctx to end
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.temperature = temperature
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if f.reply != nil {
		return f.reply(prompt), nil
	}
	return "generated", nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeProvider struct {
	mu      sync.Mutex
	queries []domain.CityQuery
	out     []map[string]any
	err     error
	block   bool // wait for ctx to end
}

func (f *fakeProvider) SearchCity(ctx context.Context, q domain.CityQuery) ([]map[string]any, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}
