package core

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyFormatter renders amounts as localized currency strings with two
// fraction digits.
type CurrencyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

var defaultFormatter = MustCurrencyFormatter("en", "EUR")

// NewCurrencyFormatter builds a formatter for a BCP 47 locale and an ISO 4217 code.
func NewCurrencyFormatter(locale, code string) (*CurrencyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	return &CurrencyFormatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

func MustCurrencyFormatter(locale, code string) *CurrencyFormatter {
	f, err := NewCurrencyFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders value, e.g. "€ 1,234.50" for en/EUR.
func (f *CurrencyFormatter) Format(value decimal.Decimal) string {
	amount, _ := value.Round(2).Float64()
	return f.printer.Sprintf("%v %v",
		currency.Symbol(f.unit),
		number.Decimal(amount, number.Scale(2)))
}

// FormatMoney is Format for cents.
func (f *CurrencyFormatter) FormatMoney(m Money) string {
	return f.Format(m.Decimal())
}

// FormatCurrency renders value with the package default (en, EUR).
func FormatCurrency(value decimal.Decimal) string {
	return defaultFormatter.Format(value)
}
