package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tourism_assistant/internal/domain"
)

const (
	NoHotelsReply = "I couldn't find any hotels matching your criteria."

	DefaultMaxTokens   = 200
	DefaultTemperature = 0.7
	DefaultGenTimeout  = 90 * time.Second

	summaryPreamble  = "You are a helpful travel assistant. Summarize these hotel options in a friendly, concise way:\n\n"
	questionPreamble = "You are a helpful travel assistant. Answer this question in a friendly, informative way:\n\n"
)

// Composer turns a classified message and its search outcome into reply text.
type Composer struct {
	llm         domain.LanguageModel
	maxTokens   int
	temperature float64
	timeout     time.Duration // whole model call, retries included
}

// NewComposer applies defaults to non-positive maxTokens and timeout and to a
// negative temperature; zero temperature is kept for greedy decoding.
func NewComposer(llm domain.LanguageModel, maxTokens int, temperature float64, timeout time.Duration) *Composer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	if timeout <= 0 {
		timeout = DefaultGenTimeout
	}
	return &Composer{llm: llm, maxTokens: maxTokens, temperature: temperature, timeout: timeout}
}

// Compose returns the reply for one message. An empty offer list is answered
// without calling the model; model errors, including running out of the
// generation budget, are returned wrapped.
func (c *Composer) Compose(ctx context.Context, intent domain.Intent, params domain.SearchParameters, outcome domain.SearchOutcome, message string) (string, error) {
	var prompt string
	switch intent {
	case domain.IntentHotelSearch:
		if len(outcome.Hotels) == 0 {
			log.Debug().Str("location", params.Location).Str("search_message", outcome.Message).Msg("no offers to summarize")
			return NoHotelsReply, nil
		}
		prompt = SummaryPrompt(outcome.Hotels)
	default:
		prompt = questionPreamble + message
	}

	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.llm.Generate(gctx, prompt, c.maxTokens, c.temperature)
	if err != nil {
		return "", fmt.Errorf("generate %s reply: %w", intent, err)
	}
	return out, nil
}

// SummaryPrompt lists each offer as "- name (price, Rating: r/5)".
func SummaryPrompt(hotels []domain.HotelOffer) string {
	var b strings.Builder
	b.WriteString(summaryPreamble)
	for i, h := range hotels {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (%s, Rating: %s)", h.Name, h.Price.Text, h.RatingLabel())
	}
	return b.String()
}
