package staging

import (
	"strings"
	"unicode"
)

// CleanString prepares a value for the UTF8 staging database: NUL bytes and
// control characters other than newline and tab are dropped, invalid UTF-8
// is removed and surrounding whitespace trimmed.
func CleanString(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == 0 || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// text returns the cleaned value, or nil so empty values are stored as NULL
func text(s string) any {
	if c := CleanString(s); c != "" {
		return c
	}
	return nil
}
