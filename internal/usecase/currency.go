package usecase

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount in Argentine pesos, e.g. "$ 1.234,50"
func FormatCurrency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return "$ " + sign + grouped.String() + "," + fracPart
}
