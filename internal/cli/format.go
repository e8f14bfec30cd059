package cli

import (
	"math"
	"strconv"
	"strings"
)

// FormatCount formats a volume or open-interest count with comma separators.
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats a price with two decimals, or "-" when there is none.
func FormatPrice(p float64) string {
	if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return "-"
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// FormatStrike drops trailing zeros: 100, 102.5.
func FormatStrike(k float64) string {
	return strconv.FormatFloat(k, 'f', -1, 64)
}
