// Package price normalizes scraped price text into canonical decimal amounts.
package price

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when no currency marker is detected in the raw text.
const DefaultCurrency = "PLN"

// Normalization failures. Both are entry-local and recorded, never fatal.
var (
	ErrInvalid     = errors.New("price: matched text is not numeric")
	ErrNotPositive = errors.New("price: value must be positive")
)

// pattern matches price-looking strings such as "1 749,99" or "1749.99",
// including non-breaking spaces used as thousands separators.
var pattern = regexp.MustCompile(`[\d\x{00a0}\x{202f}\s]+[,.]\d{2}`)

var currencyTokens = strings.NewReplacer(
	"zł", "", "ZŁ", "", "Zł", "",
	"PLN", "", "pln", "",
	"EUR", "", "eur", "", "€", "",
	"USD", "", "usd", "", "$", "",
)

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// Normalize converts a raw price string from any store format into a canonical
// decimal: "1 399,00 zł", "1 399,00", "1399.00" all yield 1399.00.
// Normalizing an already-canonical value returns it unchanged.
func Normalize(raw string) (decimal.Decimal, error) {
	s := currencyTokens.Replace(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "", " ", "", " ", "").Replace(s)
	s = strings.ReplaceAll(s, ",", ".")
	s = nonNumeric.ReplaceAllString(s, "")

	// More than one dot means the extra ones were thousands separators;
	// only the last is the decimal point.
	if parts := strings.Split(s, "."); len(parts) > 2 {
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	if s == "" || s == "." {
		return decimal.Zero, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalid
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}
	return d, nil
}

// Currency detects the currency of a raw price string, defaulting to PLN.
func Currency(raw string) string {
	switch {
	case strings.Contains(raw, "€") || strings.Contains(strings.ToUpper(raw), "EUR"):
		return "EUR"
	case strings.Contains(raw, "$") || strings.Contains(strings.ToUpper(raw), "USD"):
		return "USD"
	default:
		return DefaultCurrency
	}
}

// minPlausible filters out shipping costs, quantities and other small numbers
// that the fallback regex would otherwise pick up as a product price.
var minPlausible = decimal.NewFromInt(100)

// FromText scans free-form HTML text for the first plausible price match.
func FromText(text string) (decimal.Decimal, bool) {
	for _, m := range pattern.FindAllString(text, -1) {
		d, err := Normalize(m)
		if err != nil {
			continue
		}
		if d.GreaterThan(minPlausible) {
			return d, true
		}
	}
	return decimal.Zero, false
}
