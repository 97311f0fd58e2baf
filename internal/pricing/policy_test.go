package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteForStandardDocument(t *testing.T) {
	p := DefaultPolicy()

	q := p.QuoteFor(50_000)
	assert.Equal(t, 50_000, q.Chars)
	assert.InDelta(t, 1.0, q.PriceEUR, 1e-9)
	assert.InDelta(t, 100.0, q.PriceRUB, 1e-9)
}

func TestQuoteForMillionChars(t *testing.T) {
	p := DefaultPolicy()

	q := p.QuoteFor(1_000_000)
	assert.InDelta(t, 20.0, q.PriceEUR, 1e-9)
	assert.InDelta(t, 2000.0, q.PriceRUB, 1e-9)
}

func TestQuoteForEmptyDocument(t *testing.T) {
	p := DefaultPolicy()

	q := p.QuoteFor(0)
	assert.Zero(t, q.PriceEUR)
	assert.Zero(t, q.PriceRUB)

	q = p.QuoteFor(-10)
	assert.Zero(t, q.Chars)
	assert.Zero(t, q.PriceRUB)
}

func TestQuoteScalesLinearly(t *testing.T) {
	p := DefaultPolicy()

	single := p.QuoteFor(10_000)
	double := p.QuoteFor(20_000)
	assert.InDelta(t, single.PriceRUB*2, double.PriceRUB, 1e-9)
}

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy(0, -5)
	assert.Equal(t, DefaultRatePerMillionEUR, p.RatePerMillionEUR)
	assert.Equal(t, DefaultRUBPerEUR, p.RUBPerEUR)

	custom := NewPolicy(30, 90)
	q := custom.QuoteFor(1_000_000)
	assert.InDelta(t, 30.0, q.PriceEUR, 1e-9)
	assert.InDelta(t, 2700.0, q.PriceRUB, 1e-9)
}

func TestQuoteRounding(t *testing.T) {
	p := DefaultPolicy()

	q := p.QuoteFor(12_345)
	assert.InDelta(t, 0.25, q.RoundEUR(), 1e-9)
	assert.InDelta(t, 24.69, q.RoundRUB(), 1e-9)
}
