package app

import (
	"strings"
	"time"

	"tourism_assistant/internal/domain"
)

const DefaultLocation = "Vienna"

// Extract pulls a location and a stay window out of free text.
//
// Location is the text after the last " in ", cut at the next " for ".
// Check-in is tomorrow, next week, or else the coming Saturday (today when it
// is Saturday). Checkout is always one day after check-in. The rules are
// deliberately approximate and never fail.
func Extract(message string, now time.Time) domain.SearchParameters {
	location := DefaultLocation
	if i := strings.LastIndex(message, " in "); i >= 0 {
		rest := message[i+len(" in "):]
		if j := strings.Index(rest, " for "); j >= 0 {
			rest = rest[:j]
		}
		location = strings.TrimSpace(rest)
	}

	var checkin time.Time
	switch {
	case strings.Contains(message, "tomorrow"):
		checkin = now.AddDate(0, 0, 1)
	case strings.Contains(message, "next week"):
		checkin = now.AddDate(0, 0, 7)
	default:
		checkin = now.AddDate(0, 0, daysUntilSaturday(now))
	}

	return domain.SearchParameters{
		Location: location,
		CheckIn:  checkin.Format(domain.DateLayout),
		CheckOut: checkin.AddDate(0, 0, 1).Format(domain.DateLayout),
	}
}

// daysUntilSaturday counts with Monday as day 0, so Saturday is 5.
func daysUntilSaturday(t time.Time) int {
	weekday := (int(t.Weekday()) + 6) % 7
	return (5 - weekday + 7) % 7
}
