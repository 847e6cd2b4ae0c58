package scraper

import (
	"math"
	"strconv"
	"strings"
)

// nbspReplacer folds the non-breaking space variants the site uses as
// thousands separators into regular spaces.
var nbspReplacer = strings.NewReplacer(" ", " ", " ", " ", " ", " ")

// ParseNumber converts locale-formatted numeric/currency text into a
// float. Fails closed: ok is false for empty input, text without digits,
// or anything that does not survive separator disambiguation.
//
// Separator rule: when both a comma and a dot are present, the one
// occurring later in the string is the decimal separator and the other
// one is removed as a thousands separator. A lone comma or lone dot is
// treated as decimal. This is ambiguity-tolerant, not locale-certain: a
// single separator followed by exactly three digits ("1.234") parses as
// a decimal, which is a known misparse for some thousands-grouped
// numbers.
func ParseNumber(raw string) (float64, bool) {
	s := nbspReplacer.Replace(raw)

	// Keep digits and separators only; currency symbols, whitespace and
	// stray labels all go.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// FormatDecimalComma renders a value with two decimals and a decimal
// comma, matching the convention of the source display.
func FormatDecimalComma(value float64) string {
	return strings.Replace(strconv.FormatFloat(value, 'f', 2, 64), ".", ",", 1)
}
