// Package pricing computes translation quotes from document length.
package pricing

import "math"

const (
	// DefaultRatePerMillionEUR is the price in EUR for one million characters.
	DefaultRatePerMillionEUR = 20.0
	// DefaultRUBPerEUR converts a EUR quote into the billing currency.
	DefaultRUBPerEUR = 100.0
)

// Policy holds the tariff used to price translation jobs.
type Policy struct {
	RatePerMillionEUR float64
	RUBPerEUR         float64
}

// Quote is a priced translation job.
type Quote struct {
	Chars    int
	PriceEUR float64
	PriceRUB float64
}

// NewPolicy builds a Policy, substituting defaults for non-positive values.
func NewPolicy(ratePerMillionEUR, rubPerEUR float64) Policy {
	if ratePerMillionEUR <= 0 {
		ratePerMillionEUR = DefaultRatePerMillionEUR
	}
	if rubPerEUR <= 0 {
		rubPerEUR = DefaultRUBPerEUR
	}
	return Policy{
		RatePerMillionEUR: ratePerMillionEUR,
		RUBPerEUR:         rubPerEUR,
	}
}

// DefaultPolicy returns the standard tariff.
func DefaultPolicy() Policy {
	return NewPolicy(0, 0)
}

// QuoteFor prices a document of the given character count. Counts below zero
// are treated as zero.
func (p Policy) QuoteFor(chars int) Quote {
	if chars < 0 {
		chars = 0
	}
	eur := p.RatePerMillionEUR * float64(chars) / 1_000_000
	return Quote{
		Chars:    chars,
		PriceEUR: eur,
		PriceRUB: eur * p.RUBPerEUR,
	}
}

// RoundRUB returns the RUB price rounded to two decimal places for display.
func (q Quote) RoundRUB() float64 {
	return math.Round(q.PriceRUB*100) / 100
}

// RoundEUR returns the EUR price rounded to two decimal places for display.
func (q Quote) RoundEUR() float64 {
	return math.Round(q.PriceEUR*100) / 100
}
