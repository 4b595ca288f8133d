package format

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// GroupedAmount renders amount with thousands separators and two decimals,
// e.g. 1234567.5 as "1,234,567.50". Negative amounts keep a leading minus.
func GroupedAmount(amount decimal.Decimal) string {
	rounded := amount.Abs().Round(2)
	_, frac, _ := strings.Cut(rounded.StringFixed(2), ".")

	out := amountPrinter.Sprintf("%d", rounded.IntPart()) + "." + frac
	if amount.Round(2).IsNegative() {
		return "-" + out
	}
	return out
}
