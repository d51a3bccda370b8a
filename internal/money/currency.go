package money

// MaxCurrencyLen leaves room for codes beyond ISO 4217, e.g. crypto tickers.
const MaxCurrencyLen = 10

// ValidCurrency reports whether a currency code is acceptable: non-empty,
// at most MaxCurrencyLen characters, upper-case letters and digits only.
// The caller trims surrounding whitespace first.
func ValidCurrency(code string) bool {
	if len(code) == 0 || len(code) > MaxCurrencyLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
