package core

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter prints amounts with the restaurant's currency symbol and the
// digit grouping of its locale.
type MoneyFormatter struct {
	printer *message.Printer
	symbol  string
	scale   int
}

func NewMoneyFormatter(locale, code, symbol string) (*MoneyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	if symbol == "" {
		symbol = unit.String()
	}
	return &MoneyFormatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
		scale:   scale,
	}, nil
}

func (m *MoneyFormatter) Format(amount float64) string {
	return m.symbol + " " + m.printer.Sprint(number.Decimal(amount, number.Scale(m.scale)))
}
