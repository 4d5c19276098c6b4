// Package money renders estimated charges for display.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const DefaultCurrency = "USD"

// Formatter prints amounts with two decimals and locale grouping.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a formatter for a BCP 47 locale tag. An unparsable
// tag falls back to English.
func NewFormatter(locale, currency string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: currency}
}

func (f *Formatter) Format(amount float64) string {
	return f.printer.Sprintf("%v %s", number.Decimal(amount, number.Scale(2)), f.currency)
}

var english = NewFormatter("en", DefaultCurrency)

// Format renders amount as "12,345.68 USD".
func Format(amount float64) string {
	return english.Format(amount)
}
