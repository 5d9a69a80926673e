package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tourism_assistant/internal/domain"
)

/********** alias registry (single source of truth) **********/

var offerAliases = map[string][]string{
	"id":       {"id", "hotelId", "hotel_id", "hotelID"},
	"name":     {"name", "hotelName", "hotel_name", "title"},
	"rating":   {"rating", "reviews.rating", "review.rating", "rating.value", "reviews.score", "score"},
	"price":    {"price", "price.amount", "rate", "lowest_price"},
	"currency": {"currency", "price.currency", "currency_code"},
	"url":      {"url", "link", "booking_url", "bookingUrl"},
}

// MakCorps quotes up to four vendors as vendor1/price1 ... vendor4/price4.
const maxVendors = 4

const defaultCurrency = "EUR"

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns a string (or a number rendered as one) at path, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range offerAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

var amountRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// parseAmount pulls the first number out of strings like "$1,200", "8,5" or "€ 99.5".
// A comma followed by exactly three digits is a thousands separator.
func parseAmount(s string) (float64, bool) {
	n := amountRe.FindString(s)
	if n == "" {
		return 0, false
	}
	switch {
	case strings.Contains(n, ",") && strings.Contains(n, "."):
		n = strings.ReplaceAll(n, ",", "")
	case strings.Contains(n, ","):
		if len(n)-strings.LastIndex(n, ",")-1 == 3 {
			n = strings.ReplaceAll(n, ",", "")
		} else {
			n = strings.ReplaceAll(n, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(n, 64)
	return f, err == nil
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			if f, ok := parseAmount(strings.TrimSpace(v)); ok {
				return &f
			}
		}
	}
	return nil
}

func currencyFromSymbol(s string) string {
	switch {
	case strings.Contains(s, "$"):
		return "USD"
	case strings.Contains(s, "€"):
		return "EUR"
	case strings.Contains(s, "£"):
		return "GBP"
	}
	return ""
}

/********** offer mapper **********/

// vendorQuotes returns "Vendor: price" entries in vendor order.
func vendorQuotes(h map[string]any) []string {
	var out []string
	for i := 1; i <= maxVendors; i++ {
		price := lookupStr(h, fmt.Sprintf("price%d", i))
		if price == "" {
			continue
		}
		if vendor := lookupStr(h, fmt.Sprintf("vendor%d", i)); vendor != "" {
			out = append(out, vendor+": "+price)
			continue
		}
		out = append(out, price)
	}
	return out
}

func mapPrice(h map[string]any) domain.Price {
	currency := firstNonEmptyAlias(h, "currency")
	if f := getFloatFlexible(h, offerAliases["price"]...); f != nil {
		if currency == "" {
			currency = currencyFromSymbol(firstNonEmptyAlias(h, "price"))
		}
		if currency == "" {
			currency = defaultCurrency
		}
		return domain.NewPrice(*f, currency)
	}
	// no direct price: use the first vendor quote as the headline
	for i := 1; i <= maxVendors; i++ {
		raw := lookupStr(h, fmt.Sprintf("price%d", i))
		if raw == "" {
			continue
		}
		p := domain.Price{Currency: currency, Text: raw}
		if p.Currency == "" {
			p.Currency = currencyFromSymbol(raw)
		}
		if p.Currency == "" {
			p.Currency = defaultCurrency
		}
		if f, ok := parseAmount(raw); ok {
			p.Amount = &f
		}
		return p
	}
	if currency == "" {
		currency = defaultCurrency
	}
	return domain.Price{Currency: currency, Text: domain.PricePlaceholder}
}

// mapOffer normalises one provider entry. Every display field is filled in,
// with placeholders where the provider was silent.
func mapOffer(h map[string]any, idx int, p domain.SearchParameters) domain.HotelOffer {
	o := domain.HotelOffer{
		ID:         firstNonEmptyAlias(h, "id"),
		Name:       firstNonEmptyAlias(h, "name"),
		Rating:     getFloatFlexible(h, offerAliases["rating"]...),
		Price:      mapPrice(h),
		Prices:     vendorQuotes(h),
		Location:   p.Location,
		CheckIn:    p.CheckIn,
		CheckOut:   p.CheckOut,
		BookingURL: firstNonEmptyAlias(h, "url"),
	}
	if o.ID == "" {
		o.ID = fmt.Sprintf("offer_%03d", idx+1)
	}
	if o.Name == "" {
		o.Name = "Unknown Hotel"
	}
	if len(o.Prices) == 0 {
		o.Prices = []string{o.Price.Text}
	}
	if o.Location == "" {
		o.Location = domain.NotAvailable
	}
	return o
}

func mapOffers(in []map[string]any, p domain.SearchParameters) []domain.HotelOffer {
	out := make([]domain.HotelOffer, 0, len(in))
	for i, h := range in {
		out = append(out, mapOffer(h, i, p))
	}
	return out
}
