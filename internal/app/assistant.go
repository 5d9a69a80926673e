package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/domain"
)

var ErrEmptyMessage = errors.New("message is empty")

// Assistant is the single entry point every channel calls. It keeps no
// per-call state, so one instance serves concurrent requests.
type Assistant struct {
	search   domain.HotelSearcher
	composer *Composer
	now      func() time.Time
}

func NewAssistant(s domain.HotelSearcher, c *Composer, now func() time.Time) *Assistant {
	if now == nil {
		now = time.Now
	}
	return &Assistant{search: s, composer: c, now: now}
}

// ProcessMessage classifies the message, searches when it asks for hotels,
// and composes the reply. Search problems never surface here; generation
// failures do.
func (a *Assistant) ProcessMessage(ctx context.Context, message string) (domain.AssistantResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.AssistantResult{}, ErrEmptyMessage
	}

	intent := Classify(message)
	observability.ObserveIntent(string(intent))

	var (
		params  domain.SearchParameters
		outcome domain.SearchOutcome
	)
	if intent == domain.IntentHotelSearch {
		params = Extract(message, a.now())
		outcome = a.search.Search(ctx, domain.SearchRequest{
			Location: params.Location,
			CheckIn:  params.CheckIn,
			CheckOut: params.CheckOut,
			Guests:   DefaultGuests,
		})
		log.Info().
			Str("intent", string(intent)).
			Str("location", params.Location).
			Str("checkin", params.CheckIn).
			Str("status", string(outcome.Status)).
			Bool("simulated", outcome.Simulated).
			Int("offers", len(outcome.Hotels)).
			Msg("hotel search")
	}

	reply, err := a.composer.Compose(ctx, intent, params, outcome, message)
	if err != nil {
		log.Error().Err(err).Str("intent", string(intent)).Int("message_len", len(message)).Msg("compose failed")
		return domain.AssistantResult{}, err
	}

	hotels := outcome.Hotels
	if hotels == nil {
		hotels = []domain.HotelOffer{}
	}
	return domain.AssistantResult{Response: reply, Hotels: hotels}, nil
}
