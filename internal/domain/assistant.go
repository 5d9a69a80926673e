package domain

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentHotelSearch     Intent = "hotel_search"
	IntentGeneralQuestion Intent = "general_question"
)

const DateLayout = "2006-01-02"

type SearchParameters struct {
	Location string `json:"location"`
	CheckIn  string `json:"checkin_date"`
	CheckOut string `json:"checkout_date"`
}

type SearchRequest struct {
	Location string
	CheckIn  string
	CheckOut string // optional; defaults to CheckIn + 1 day
	Guests   int    // defaults to 2
}

type SearchStatus string

const (
	SearchSuccess SearchStatus = "success"
	SearchError   SearchStatus = "error"
)

// SearchOutcome is returned by the search backend instead of an error.
type SearchOutcome struct {
	Status    SearchStatus `json:"status"`
	Hotels    []HotelOffer `json:"hotels"`
	Message   string       `json:"message,omitempty"`
	Simulated bool         `json:"simulated"`
}

// AssistantResult is the only shape channel adapters ever see.
type AssistantResult struct {
	Response string       `json:"response"`
	Hotels   []HotelOffer `json:"hotels"`
}
