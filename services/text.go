package services

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Audit details are written in Brazilian Portuguese, like the rest of the
// product copy.
var ptBR = message.NewPrinter(language.BrazilianPortuguese)

func chips(n decimal.Decimal) string {
	if n.IsInteger() {
		return ptBR.Sprintf("%d Fichas", n.IntPart())
	}
	return ptBR.Sprintf("%.2f Fichas", n.InexactFloat64())
}

func brl(cents int64) string {
	return ptBR.Sprint(currency.Symbol(currency.BRL.Amount(float64(cents) / 100)))
}
