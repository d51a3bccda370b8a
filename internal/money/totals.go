package money

import "github.com/shopspring/decimal"

// Total is the exact sum of prices observed for one currency.
type Total struct {
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
}

// Totals accumulates monetary values bucketed per currency. Values in
// different currencies are never combined into one number; a bucket is
// created lazily the first time its currency is seen.
type Totals struct {
	order   []string
	buckets map[string]decimal.Decimal
}

// NewTotals returns an empty accumulator.
func NewTotals() *Totals {
	return &Totals{buckets: make(map[string]decimal.Decimal)}
}

// Add adds amount to the bucket for currency using exact decimal arithmetic.
func (t *Totals) Add(currency string, amount decimal.Decimal) {
	current, ok := t.buckets[currency]
	if !ok {
		t.order = append(t.order, currency)
	}
	t.buckets[currency] = current.Add(amount)
}

// Pairs returns one (currency, total) entry per distinct currency observed,
// in first-seen order. No zero-valued entries exist for unseen currencies.
func (t *Totals) Pairs() []Total {
	pairs := make([]Total, 0, len(t.order))
	for _, currency := range t.order {
		pairs = append(pairs, Total{Currency: currency, Price: t.buckets[currency]})
	}
	return pairs
}
