package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	AUD Currency = "AUD"
	CAD Currency = "CAD"
	CHF Currency = "CHF"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	NZD Currency = "NZD"
	SEK Currency = "SEK"
	USD Currency = "USD"
)

// Currencies is the fixed column order used by every source and output table.
var Currencies = []Currency{AUD, CAD, CHF, EUR, GBP, JPY, NZD, SEK}

// ReciprocalCurrencies are quoted natively as USD per unit of foreign currency and
// must be inverted to match the convention of the other four.
var ReciprocalCurrencies = map[Currency]bool{
	AUD: true,
	EUR: true,
	GBP: true,
	NZD: true,
}

// forwardPointScale holds the per-currency divisor turning forward points into a rate
// increment. Currencies not listed use defaultPointScale.
var forwardPointScale = map[Currency]float64{
	JPY: 100,
}

const defaultPointScale = 10000

const USDRateColumn = "USD_IR"

// PointScale returns the divisor applied to forward points of c.
func PointScale(c Currency) float64 {
	if s, ok := forwardPointScale[c]; ok {
		return s
	}
	return defaultPointScale
}

// IsReciprocal reports whether c is inverted during normalization.
func IsReciprocal(c Currency) bool { return ReciprocalCurrencies[c] }

func IsSupported(c Currency) bool {
	for _, s := range Currencies {
		if s == c {
			return true
		}
	}
	return false
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if c == USD || IsSupported(c) {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
}

func (c Currency) SpotColumn() string      { return string(c) + "_CURNCY" }
func (c Currency) ForwardColumn() string   { return string(c) + "_CURNCY3M" }
func (c Currency) RateColumn() string      { return string(c) + "_IR" }
func (c Currency) DeviationColumn() string { return "CIP_" + string(c) + "_ln" }

// QuoteColumns lists every column a complete quote table carries: spot, forward and
// rate for each currency followed by USD_IR.
func QuoteColumns() []string {
	out := make([]string, 0, 3*len(Currencies)+1)
	for _, c := range Currencies {
		out = append(out, c.SpotColumn())
	}
	for _, c := range Currencies {
		out = append(out, c.ForwardColumn())
	}
	for _, c := range Currencies {
		out = append(out, c.RateColumn())
	}
	return append(out, USDRateColumn)
}

func DeviationColumns() []string {
	out := make([]string, len(Currencies))
	for i, c := range Currencies {
		out[i] = c.DeviationColumn()
	}
	return out
}

// CurrencyOfDeviation maps CIP_XXX_ln back to XXX.
func CurrencyOfDeviation(col string) (Currency, bool) {
	if !strings.HasPrefix(col, "CIP_") || !strings.HasSuffix(col, "_ln") || len(col) != len("CIP_XXX_ln") {
		return "", false
	}
	c := Currency(col[4:7])
	return c, IsSupported(c)
}
