package normalize

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts covers the formats seen across storefront and supplier
// exports. Tried in order; all results are converted to UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseUTC parses a free-form datetime string. Naive timestamps are assumed
// to already be UTC. Unparseable input yields the zero time, never an error.
func parseUTC(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseInt coerces a numeric cell ("3", "3.0", " 3 ") to an int, falling
// back to def on anything unparseable.
func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return def
}

// parseFloat coerces a numeric cell to a float64, 0 on failure. Currency
// symbols and thousands separators are stripped first.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseBool accepts the truthy spellings tracking exports use.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}

// upperCode trims and upper-cases a short code (SKU, country). Country codes
// are best-effort: anything longer than two letters passes through as
// display text.
func upperCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
