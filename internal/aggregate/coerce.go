package aggregate

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// numberReplacer strips currency symbols, separators and spacing from metric cells.
var numberReplacer = strings.NewReplacer(
	"₹", "", "$", "", "€", "", "£", "", "¥", "",
	",", "", "%", "", " ", "", "\u00a0", "", "\t", "",
)

// placeholders are empty-cell markers that coerce to zero silently.
var placeholders = map[string]bool{
	"":     true,
	"-":    true,
	"--":   true,
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
}

// IsPlaceholder reports whether raw is an empty-cell marker.
func IsPlaceholder(raw string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(raw))]
}

// ParseNumber coerces a raw metric cell. Placeholders yield (0, true).
// Anything else that does not parse yields (0, false).
func ParseNumber(raw string) (float64, bool) {
	if IsPlaceholder(raw) {
		return 0, true
	}
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// dateLayouts are the formats ad platforms and warehouses export.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"20060102",
}

// ParseDate parses raw with the known layouts.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate renders raw as YYYY-MM-DD, or returns it trimmed when it
// does not parse.
func NormalizeDate(raw string) string {
	if t, ok := ParseDate(raw); ok {
		return t.Format(time.DateOnly)
	}
	return strings.TrimSpace(raw)
}
