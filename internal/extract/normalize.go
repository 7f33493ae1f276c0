package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	embeddedNumber  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	celsiusUnit     = regexp.MustCompile(`(?i)^\s*(?:°\s*c\b|celsius\b|c\b)`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	fourDigitYearRe = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// IsNumeric reports whether s (trimmed) is an optionally negative decimal
// number. Exponents and thousands separators are not accepted.
func IsNumeric(s string) bool {
	return numericPattern.MatchString(strings.TrimSpace(s))
}

// ParseFloat returns the value of a numeric cell.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInt returns a numeric cell truncated toward zero, so "6.0" is 6.
// Values outside the int range are rejected.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		n, err := strconv.ParseInt(s, 10, 0)
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f >= -math.MinInt || f < math.MinInt {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// ParseTemp extracts the first signed decimal embedded anywhere in s, so
// "28.4F" and "28.4 Fahrenheit" both read 28.4. A Celsius unit directly after
// the number converts the value to Fahrenheit.
func ParseTemp(s string) (float64, bool) {
	loc := embeddedNumber.FindStringIndex(s)
	if loc == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
	if err != nil {
		return 0, false
	}
	if celsiusUnit.MatchString(s[loc[1]:]) {
		f = f*9/5 + 32
	}
	return f, true
}

// ParseLatLon splits "lat/lon" on the first slash and parses each side
// independently. Both are nil when there is no slash.
func ParseLatLon(s string) (lat, lon *float64) {
	left, right, found := strings.Cut(s, "/")
	if !found {
		return nil, nil
	}
	return floatPtr(left), floatPtr(right)
}

// CleanText collapses whitespace runs (including embedded newlines) to a
// single space and trims the ends.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// yearFromText returns the first 4-digit 19xx/20xx token in s.
func yearFromText(s string) (int, bool) {
	m := fourDigitYearRe.FindString(s)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// --- nullable helpers ---

func intPtr(s string) *int {
	n, ok := ParseInt(s)
	if !ok {
		return nil
	}
	return &n
}

func floatPtr(s string) *float64 {
	f, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return &f
}

func tempPtr(s string) *float64 {
	f, ok := ParseTemp(s)
	if !ok {
		return nil
	}
	return &f
}

// textPtr returns the cleaned text, or nil when nothing is left.
func textPtr(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}
