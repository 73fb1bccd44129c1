package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// numericRun matches a digit followed by any run of digits, spaces, periods or
// commas. \p{Zs} covers the non-breaking and thin spaces used as thousands
// separators.
var numericRun = regexp.MustCompile(`\d[\d\s\p{Zs}.,]*`)

// FirstNumericRun returns the first numeric run in s with trailing
// separators trimmed, e.g. "Prix: 15 000 FCFA" yields "15 000".
func FirstNumericRun(s string) (string, bool) {
	m := numericRun.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.TrimRightFunc(m, isRunSeparator), true
}

// DigitsOnly keeps the ASCII digits of s, in order.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isRunSeparator(r rune) bool {
	return r == '.' || r == ',' || unicode.IsSpace(r)
}
