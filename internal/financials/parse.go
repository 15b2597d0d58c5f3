package financials

import (
	"strconv"
	"strings"
)

// parseInt coerces a cell to an integer, tolerating float artifacts like
// "3.0" from spreadsheet exports.
func parseInt(s string) (int, bool) {
	v, ok := parseAmount(s)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// parseAmount coerces a cell to a float, tolerating currency formatting.
// Parenthesized values are treated as negative.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}
