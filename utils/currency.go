package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice renders a dollar amount with thousands separators,
// e.g. 1234.5 -> "$1,234.50".
func FormatPrice(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	integer := cents / 100
	decimal := cents % 100

	digits := fmt.Sprintf("%d", integer)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%s$%s.%02d", sign, strings.Join(groups, ","), decimal)
}
