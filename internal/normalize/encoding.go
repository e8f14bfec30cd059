// Package normalize translates the options-data daemon's compact wire formats
// into the dashboard's self-describing model: scaled strikes, YYYYMMDD date
// integers, C/P right letters and the {response: [...]} envelope.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StrikeScale is the factor between a decimal strike and its wire encoding
// (170.00 <-> 170000).
const StrikeScale = 1000

var strikeScale = decimal.NewFromInt(StrikeScale)

// ScaleStrike converts a decimal strike into the daemon's integer encoding.
func ScaleStrike(strike float64) int64 {
	return decimal.NewFromFloat(strike).Mul(strikeScale).Round(0).IntPart()
}

// UnscaleStrike converts a wire-encoded strike back to its decimal price.
func UnscaleStrike(scaled int64) float64 {
	f, _ := decimal.NewFromInt(scaled).Div(strikeScale).Float64()
	return f
}

// unscaleDecimal is UnscaleStrike for values that arrive as arbitrary JSON
// numbers.
func unscaleDecimal(d decimal.Decimal) float64 {
	f, _ := d.Div(strikeScale).Float64()
	return f
}

// StripDashes turns "2024-01-19" into "20240119".
func StripDashes(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// InsertDashes turns "20240119" into "2024-01-19". Anything that is not an
// 8-digit string is returned unchanged.
func InsertDashes(compact string) string {
	if len(compact) != 8 || !allDigits(compact) {
		return compact
	}
	return compact[0:4] + "-" + compact[4:6] + "-" + compact[6:8]
}

// FormatDateInt renders a YYYYMMDD integer as an ISO date, zero-padding to
// eight digits first.
func FormatDateInt(v int64) string {
	return InsertDashes(fmt.Sprintf("%08d", v))
}

// DateInt returns t's calendar date as a YYYYMMDD integer.
func DateInt(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// ExpirationCutoff is the oldest expiration kept by Expirations: the calendar
// date six months before now, inclusive.
func ExpirationCutoff(now time.Time) int64 {
	return DateInt(now.AddDate(0, -6, 0))
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
