// Package money rounds and converts receipt amounts using ISO 4217 minor units.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrNoRate is returned when a conversion needs an exchange rate that is not set
var ErrNoRate = errors.New("no exchange rate")

// Rates maps a currency code to how many units of the home currency one unit
// of it is worth.
type Rates map[string]decimal.Decimal

// Code upper-cases and trims a currency code
func Code(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// DecimalPlaces returns the number of minor-unit digits for the currency per
// ISO 4217 (JPY=0, HKD=2, KWD=3). Unknown currencies use 2.
func DecimalPlaces(currency string) int32 {
	c := gomoney.GetCurrency(Code(currency))
	if c == nil {
		return 2
	}
	return int32(c.Fraction)
}

// Round rounds amount half away from zero to the currency's minor unit.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(DecimalPlaces(currency))
}

// Format renders amount with the currency's symbol, e.g. HK$88.00 or ₩2,500.
func Format(amount decimal.Decimal, currency string) string {
	code := Code(currency)
	if gomoney.GetCurrency(code) == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := Round(amount, code).Shift(DecimalPlaces(code)).IntPart()
	return gomoney.New(minor, code).Display()
}

// LineTotal is what a receipt line cost after its discount
func LineTotal(price decimal.Decimal, qty int, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Sub(discount)
}

// Convert expresses amount in the home currency. Amounts already in the home
// currency are only rounded.
func (r Rates) Convert(amount decimal.Decimal, from, home string) (decimal.Decimal, error) {
	from, home = Code(from), Code(home)
	if from == home || from == "" {
		return Round(amount, home), nil
	}
	rate, ok := r[from]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("converting %s to %s: %w", from, home, ErrNoRate)
	}
	return Round(amount.Mul(rate), home), nil
}

// Normalize returns a copy of r with upper-case codes and non-positive rates
// removed.
func (r Rates) Normalize() Rates {
	out := make(Rates, len(r))
	for code, rate := range r {
		if code = Code(code); code != "" && rate.IsPositive() {
			out[code] = rate
		}
	}
	return out
}
