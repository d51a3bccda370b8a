package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCurrency(t *testing.T) {
	valid := []string{"USD", "EUR", "RON", "SHIB", "X", "B2X"}
	for _, code := range valid {
		assert.True(t, ValidCurrency(code), "expected %q to be valid", code)
	}

	invalid := []string{"", "usd", "US D", "VERYLONGCODE", "EU€", "eur", " USD"}
	for _, code := range invalid {
		assert.False(t, ValidCurrency(code), "expected %q to be invalid", code)
	}
}

func TestTotalsBucketsPerCurrency(t *testing.T) {
	totals := NewTotals()
	totals.Add("USD", decimal.RequireFromString("10.00"))
	totals.Add("USD", decimal.RequireFromString("5.50"))
	totals.Add("EUR", decimal.RequireFromString("20.00"))

	pairs := totals.Pairs()
	require.Len(t, pairs, 2)

	byCurrency := map[string]decimal.Decimal{}
	for _, p := range pairs {
		byCurrency[p.Currency] = p.Price
	}
	assert.True(t, byCurrency["USD"].Equal(decimal.RequireFromString("15.50")))
	assert.True(t, byCurrency["EUR"].Equal(decimal.RequireFromString("20.00")))
}

func TestTotalsExactFractionalCents(t *testing.T) {
	// 0.1 + 0.2 drifts with float64, must be exact here
	totals := NewTotals()
	totals.Add("USD", decimal.RequireFromString("0.10"))
	totals.Add("USD", decimal.RequireFromString("0.20"))

	pairs := totals.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "0.3", pairs[0].Price.String())
}

func TestTotalsNoZeroEntries(t *testing.T) {
	totals := NewTotals()
	assert.Empty(t, totals.Pairs())
}
