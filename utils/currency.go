package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency formats an amount as Brazilian Real.
// Example: 1234.5 -> "R$ 1.234,50"
func FormatCurrency(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	formatted := amount.Abs().StringFixed(2)

	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	// pemisah ribuan
	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := "R$ " + strings.Join(groups, ".") + "," + decimalPart
	if neg {
		return "-" + out
	}
	return out
}
