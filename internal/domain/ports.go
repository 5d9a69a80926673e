package domain

import "context"

// HotelSearcher never fails: transport and payload problems come back as an
// outcome with Status == SearchError, or as simulated data.
type HotelSearcher interface {
	Search(ctx context.Context, req SearchRequest) SearchOutcome
}

// LanguageModel is an opaque text-generation backend.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// HotelProvider is the raw pricing API behind the searcher.
type HotelProvider interface {
	SearchCity(ctx context.Context, q CityQuery) ([]map[string]any, error)
}

type CityQuery struct {
	CityID   string
	CheckIn  string
	CheckOut string
	Adults   int
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Messenger delivers a reply to a chat on an outbound channel.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
