// Package numfmt parses the abbreviated count formats the platforms render
// ("2.6万", "1.5亿", "1.2K", "3.4M") into plain integers, and formats
// integers back into compact display strings for reports.
package numfmt

import (
	"regexp"
	"strconv"
	"strings"
)

// marker is one magnitude suffix. Markers are ordered largest magnitude
// first so "亿" (1e8) is checked before "万" (1e4) and "B" before "K". A
// marker only applies when it immediately follows the number: "12w" scales,
// "123 views" does not.
type marker struct {
	token string
	scale float64
}

var markers = []marker{
	{"亿", 1e8}, // Simplified Chinese hundred-million
	{"億", 1e8}, // Traditional Chinese hundred-million
	{"억", 1e8}, // Korean hundred-million
	{"b", 1e9},  // Western billion
	{"m", 1e6},  // Western million
	{"万", 1e4}, // Simplified Chinese ten-thousand
	{"萬", 1e4}, // Traditional Chinese ten-thousand
	{"만", 1e4}, // Korean ten-thousand
	{"w", 1e4},  // Latin approximation of 万
	{"천", 1e3}, // Korean thousand
	{"k", 1e3},  // Western thousand
}

var numPrefix = regexp.MustCompile(`[\d.]+`)

// Parse converts a count string to an integer. It accepts plain digit
// strings, decimal strings, comma-grouped numbers, and numbers carrying a
// magnitude suffix from the table above. Parse never fails: any text it
// cannot make sense of yields 0, because a missing count must not abort a
// crawl.
func Parse(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	clean := strings.ReplaceAll(text, ",", "")
	loc := numPrefix.FindStringIndex(clean)
	if loc == nil {
		return 0
	}
	num := clean[loc[0]:loc[1]]
	if !strings.ContainsAny(num, "0123456789") {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0
	}

	suffix := strings.ToLower(strings.TrimSpace(clean[loc[1]:]))
	for _, m := range markers {
		if strings.HasPrefix(suffix, m.token) {
			return int(f * m.scale)
		}
	}

	// No magnitude suffix: plain number, possibly surrounded by label text
	// ("评论 123", "152345 views").
	return int(f)
}

// Format renders n as a compact display string for report tables.
func Format(n int) string {
	switch {
	case n >= 1_000_000_000:
		return trimZero(float64(n)/1e9) + "B"
	case n >= 1_000_000:
		return trimZero(float64(n)/1e6) + "M"
	case n >= 1_000:
		return trimZero(float64(n)/1e3) + "K"
	default:
		return strconv.Itoa(n)
	}
}

func trimZero(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}
