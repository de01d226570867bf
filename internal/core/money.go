package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in cents. Cents keep sums exact.
type Money struct {
	Cents int64
}

// MoneyFromDecimal converts a decimal amount to cents, rounding half away
// from zero on the third decimal place.
//
// Examples:
//
//	MoneyFromDecimal(decimal.RequireFromString("12.34"))  -> {1234}
//	MoneyFromDecimal(decimal.RequireFromString("12.345")) -> {1235}
//	MoneyFromDecimal(decimal.RequireFromString("-0.005")) -> {-1}
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// ParseAmount parses a user supplied amount. It accepts both dot (12.34) and
// comma (12,34) decimal separators and an optional sign.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "amount is required"}
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "amount must be a decimal number"}
	}
	return d, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Signed applies the sign convention of t: negative magnitude for expense,
// non-negative magnitude for income. The sign m already carries is ignored.
func (m Money) Signed(t CategoryType) Money {
	abs := m.Abs()
	if t == Expense {
		return abs.Neg()
	}
	return abs
}

// String renders m with the default currency formatter.
func (m Money) String() string {
	return FormatCurrency(m.Decimal())
}
