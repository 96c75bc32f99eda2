package types

import (
	"strings"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/samber/lo"
)

// Currency is an upper case 3 letter ISO 4217 code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyINR Currency = "INR"
	CurrencyAUD Currency = "AUD"
	CurrencyCAD Currency = "CAD"
	CurrencyJPY Currency = "JPY"
	CurrencySGD Currency = "SGD"
)

// CURRENCY_CODES_SYMBOLS maps supported currencies to their display symbols
var CURRENCY_CODES_SYMBOLS = map[Currency]string{
	CurrencyUSD: "$",
	CurrencyEUR: "€",
	CurrencyGBP: "£",
	CurrencyINR: "₹",
	CurrencyAUD: "AU$",
	CurrencyCAD: "CA$",
	CurrencyJPY: "¥",
	CurrencySGD: "S$",
}

// NormalizeCurrency upper cases and trims a user supplied currency code
func NormalizeCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol, falling back to the code itself
func (c Currency) Symbol() string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[c]; ok {
		return symbol
	}
	return string(c)
}

func (c Currency) Validate() error {
	if _, ok := CURRENCY_CODES_SYMBOLS[c]; !ok {
		return ierr.NewError("invalid currency").
			WithHint("Unsupported currency code").
			WithReportableDetails(map[string]any{
				"currency":           c,
				"allowed_currencies": lo.Keys(CURRENCY_CODES_SYMBOLS),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
