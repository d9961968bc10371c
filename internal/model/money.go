package model

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatCurrency renders an amount in rupees without fraction digits.
func FormatCurrency(amount decimal.Decimal) string {
	return inr.Sprintf("₹%d", amount.Round(0).IntPart())
}
