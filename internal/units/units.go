// Package units converts slicer values between percentages, fractions and
// millimeters. Every converter reports "no value" through its boolean result
// instead of failing, so callers can drop fields whose conversion is ambiguous.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxFraction is the ceiling applied by PercentToFraction.
const MaxFraction = 2.0

// IsPercent reports whether v carries a trailing percent sign.
func IsPercent(v string) bool {
	return strings.HasSuffix(strings.TrimSpace(v), "%")
}

// StripPercent removes one trailing percent sign, if present.
func StripPercent(v string) string {
	v = strings.TrimSpace(v)
	if s, ok := strings.CutSuffix(v, "%"); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// FormatNumber renders f in the shortest decimal form ("1.5", "2", "0.08").
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseNumber parses a plain finite decimal value. Percent, hex, NaN and
// infinite values are rejected.
func ParseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" || IsPercent(v) || strings.ContainsAny(v, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PercentToFraction converts "150%" to "1.5", clamping results above
// MaxFraction. Non-percent input is returned unchanged.
func PercentToFraction(v string) (string, bool) {
	if !IsPercent(v) {
		return v, true
	}
	pct, ok := ParseNumber(StripPercent(v))
	if !ok {
		return "", false
	}
	f := pct / 100
	if f > MaxFraction {
		return FormatNumber(MaxFraction), true
	}
	return FormatNumber(f), true
}

// PercentToMillimeter resolves a percentage of comparator (usually the
// nozzle diameter) to millimeters. Values that are already absolute are
// returned unchanged. A missing, malformed or percent comparator yields no
// value.
func PercentToMillimeter(comparator, v string) (string, bool) {
	if strings.TrimSpace(v) == "" {
		return "", false
	}
	if !IsPercent(v) {
		return v, true
	}
	base, ok := ParseNumber(comparator)
	if !ok {
		return "", false
	}
	pct, ok := ParseNumber(StripPercent(v))
	if !ok {
		return "", false
	}
	return FormatNumber(base * pct / 100), true
}

// MillimeterToPercent expresses v as a percentage of comparator, formatted
// with two decimals ("50.00%"). Values that are already percentages are
// returned unchanged. A missing, zero, malformed or percent comparator
// yields no value.
func MillimeterToPercent(comparator, v string) (string, bool) {
	if IsPercent(v) {
		return v, true
	}
	mm, ok := ParseNumber(v)
	if !ok {
		return "", false
	}
	base, ok := ParseNumber(comparator)
	if !ok || base == 0 {
		return "", false
	}
	return fmt.Sprintf("%.2f%%", mm/base*100), true
}
