package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"tourism_assistant/internal/adapters/observability"
	"tourism_assistant/internal/domain"
)

const (
	DefaultGuests        = 2
	defaultSearchTimeout = 15 * time.Second

	msgParseFailed = "Failed to parse hotel data"
	msgUnavailable = "Hotel search is temporarily unavailable"
)

type SearchOptions struct {
	Simulated     bool
	AllowFallback bool
	Timeout       time.Duration
	Cache         domain.Cache // optional; only live results are cached
	CacheTTL      time.Duration
}

// SearchService fronts the pricing provider. In simulated mode, or when the
// provider is nil, it answers with deterministic synthetic offers.
type SearchService struct {
	provider domain.HotelProvider
	opt      SearchOptions
	group    singleflight.Group
}

var _ domain.HotelSearcher = (*SearchService)(nil)

func NewSearchService(p domain.HotelProvider, opt SearchOptions) *SearchService {
	if p == nil {
		opt.Simulated = true
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultSearchTimeout
	}
	return &SearchService{provider: p, opt: opt}
}

func (s *SearchService) Simulated() bool { return s.opt.Simulated }

func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) domain.SearchOutcome {
	if req.Guests <= 0 {
		req.Guests = DefaultGuests
	}
	in, err := time.Parse(domain.DateLayout, req.CheckIn)
	if err != nil {
		return errorOutcome(fmt.Sprintf("Invalid check-in date %q", req.CheckIn))
	}
	if req.CheckOut == "" {
		req.CheckOut = in.AddDate(0, 0, 1).Format(domain.DateLayout)
	} else if out, err := time.Parse(domain.DateLayout, req.CheckOut); err != nil || !out.After(in) {
		return errorOutcome("Check-out date must be a valid date after check-in")
	}
	params := domain.SearchParameters{Location: req.Location, CheckIn: req.CheckIn, CheckOut: req.CheckOut}

	if s.opt.Simulated {
		return simulatedOutcome(params)
	}

	q := domain.CityQuery{
		CityID:   cityID(req.Location),
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Adults:   req.Guests,
	}
	key := fmt.Sprintf("search:%s:%s:%s:%d", strings.ToLower(q.CityID), q.CheckIn, q.CheckOut, q.Adults)

	var cached []domain.HotelOffer
	if s.opt.Cache != nil {
		if ok, err := s.opt.Cache.Get(ctx, key, &cached); err == nil && ok {
			return domain.SearchOutcome{Status: domain.SearchSuccess, Hotels: cached}
		} else if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("search cache read failed")
		}
	}

	// Identical concurrent searches share one provider call. The call runs on
	// its own deadline so one caller going away does not fail the others.
	ch := s.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opt.Timeout)
		defer cancel()
		return s.provider.SearchCity(cctx, q)
	})

	var raw []map[string]any
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		err = res.Err
		if err == nil {
			raw, _ = res.Val.([]map[string]any)
		}
	}

	if err != nil {
		if errors.Is(err, domain.ErrMalformed) {
			log.Error().Err(err).Str("city", q.CityID).Msg("hotel payload parsing failed")
			return errorOutcome(msgParseFailed)
		}
		reason := fallbackReason(err)
		if !s.opt.AllowFallback {
			log.Error().Err(err).Str("city", q.CityID).Str("reason", reason).Msg("hotel search failed")
			return errorOutcome(msgUnavailable)
		}
		log.Warn().Err(err).Str("city", q.CityID).Str("reason", reason).Msg("hotel search failed, using simulated data")
		observability.ObserveFallback(reason)
		return simulatedOutcome(params)
	}

	hotels := mapOffers(raw, params)
	if s.opt.Cache != nil && len(hotels) > 0 {
		if err := s.opt.Cache.Set(ctx, key, hotels, int(s.opt.CacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("search cache write failed")
		}
	}
	return domain.SearchOutcome{Status: domain.SearchSuccess, Hotels: hotels}
}

// cityID takes the id out of "Vienna (187147)"; otherwise the location is the id.
func cityID(location string) string {
	open := strings.LastIndex(location, "(")
	if open < 0 {
		return location
	}
	rest := location[open+1:]
	end := strings.Index(rest, ")")
	if end < 0 {
		return location
	}
	return strings.TrimSpace(rest[:end])
}

func fallbackReason(err error) string {
	var se *domain.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		return "auth"
	case errors.Is(err, domain.ErrNotFound), errors.As(err, &se):
		return "status"
	}
	return "transport"
}

func errorOutcome(msg string) domain.SearchOutcome {
	return domain.SearchOutcome{Status: domain.SearchError, Hotels: []domain.HotelOffer{}, Message: msg}
}

func simulatedOutcome(p domain.SearchParameters) domain.SearchOutcome {
	offer := func(id, name string, rating, amount float64, url string) domain.HotelOffer {
		r := rating
		price := domain.NewPrice(amount, "EUR")
		return domain.HotelOffer{
			ID:         id,
			Name:       name,
			Rating:     &r,
			Price:      price,
			Prices:     []string{price.Text},
			Location:   p.Location,
			CheckIn:    p.CheckIn,
			CheckOut:   p.CheckOut,
			BookingURL: url,
		}
	}
	return domain.SearchOutcome{
		Status: domain.SearchSuccess,
		Hotels: []domain.HotelOffer{
			offer("sim_001", "Luxury Hotel in "+p.Location, 4.8, 250, "https://example.com/hotel1"),
			offer("sim_002", "Boutique Hotel in "+p.Location, 4.5, 180, "https://example.com/hotel2"),
		},
		Simulated: true,
	}
}
