package app

import (
	"strings"

	"tourism_assistant/internal/domain"
)

var hotelKeywords = []string{"hotel", "stay", "accommodation", "book", "reservation"}

// Classify maps any message to exactly one intent by keyword matching.
// It is a heuristic, not a semantic classifier: "bookshop" counts as hotel talk.
func Classify(message string) domain.Intent {
	low := strings.ToLower(message)
	for _, kw := range hotelKeywords {
		if strings.Contains(low, kw) {
			return domain.IntentHotelSearch
		}
	}
	return domain.IntentGeneralQuestion
}
