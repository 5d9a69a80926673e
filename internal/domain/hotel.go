package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	NotAvailable     = "N/A"
	PricePlaceholder = "Price information not available"
)

// Price is what a single offer costs per night. Amount is nil when the provider
// did not quote one; Text is always set and is what gets shown to users.
type Price struct {
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency"`
	Text     string   `json:"text"`
}

type HotelOffer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Rating     *float64 `json:"-"` // serialised as a number, or "N/A" when unknown
	Price      Price    `json:"price"`
	Prices     []string `json:"prices"` // per-vendor quotes, e.g. "Booking.com: $120"
	Location   string   `json:"location"`
	CheckIn    string   `json:"checkin_date"`
	CheckOut   string   `json:"checkout_date"`
	BookingURL string   `json:"booking_url"`
}

// RatingLabel renders the rating as "4.5/5", or the placeholder when unknown.
func (o HotelOffer) RatingLabel() string {
	if o.Rating == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*o.Rating, 'f', -1, 64) + "/5"
}

// NewPrice builds a Price whose Text reads "250 EUR".
func NewPrice(amount float64, currency string) Price {
	a := amount
	return Price{
		Amount:   &a,
		Currency: currency,
		Text:     fmt.Sprintf("%s %s", strconv.FormatFloat(amount, 'f', -1, 64), currency),
	}
}

func (o HotelOffer) MarshalJSON() ([]byte, error) {
	type plain HotelOffer
	var rating any = NotAvailable
	if o.Rating != nil {
		rating = *o.Rating
	}
	return json.Marshal(struct {
		plain
		Rating any `json:"rating"`
	}{plain(o), rating})
}

func (o *HotelOffer) UnmarshalJSON(b []byte) error {
	type plain HotelOffer
	aux := struct {
		*plain
		Rating json.RawMessage `json:"rating"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.Rating = nil
	var f float64
	if len(aux.Rating) > 0 && json.Unmarshal(aux.Rating, &f) == nil {
		o.Rating = &f
	}
	return nil
}
