package models

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,50".
func FormatBRL(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return "R$ " + brPrinter.Sprint(number.Decimal(f, number.Scale(2)))
}
