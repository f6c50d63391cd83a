// Package utils provides shared utility functions.
package utils

import (
	"fmt"
)

// FormatPrice formats a price level to 4 decimal places, the
// convention used for synthesized entry/stop/target levels.
func FormatPrice(value float64) string {
	return fmt.Sprintf("%.4f", value)
}

// FormatMoney formats a signed monetary amount with 2 decimal places.
func FormatMoney(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, value)
}

// FormatRate formats an unsigned rate percentage.
func FormatRate(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// Truncate shortens a string to at most n runes, appending an
// ellipsis when truncated.
func Truncate(s string, n int) string {
	if n <= 3 {
		n = 3
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
