package invoice

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var (
	carrierPrefixPattern = regexp.MustCompile(`^.*?(?:Prepravca|Vozidlo|Štát)[^\n]*`)
	shortTokenPattern    = regexp.MustCompile(`^[A-Z]{1,2}\s+`)
)

// normalizeText folds PDF text quirks (CRLF, non-breaking spaces) before matching
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\u202f", " ")
	return text
}

// StripSpaces removes every whitespace rune, e.g. "SK31 1200 0000" -> "SK3112000000"
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ParseAmount reads a decimal written with spaces, a decimal comma or a
// percent sign. When both separators occur, the last one is the decimal
// separator. Unreadable input yields an invalid value, never zero.
func ParseAmount(raw string) decimal.NullDecimal {
	s := StripSpaces(raw)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return decimal.NullDecimal{}
	}

	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	s = strings.ReplaceAll(s, ",", ".")

	// keep only the last point as decimal separator
	if n := strings.Count(s, "."); n > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseDate reads D.M.YYYY with arbitrary embedded whitespace,
// e.g. "1 6. 0 9. 2 0 2 5" -> 2025-09-16.
func ParseDate(raw string) (entity.Date, bool) {
	parts := strings.Split(StripSpaces(raw), ".")
	if len(parts) != 3 {
		return entity.Date{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return entity.Date{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return entity.Date{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 4 {
		return entity.Date{}, false
	}

	date, err := entity.NewDate(year, month, day)
	if err != nil {
		return entity.Date{}, false
	}
	return date, true
}

// CleanPartyName removes layout noise captured together with a company name:
// carrier/vehicle lines, short leading tokens and letter-spaced capitals.
func CleanPartyName(raw string) string {
	name := strings.TrimSpace(raw)
	name = carrierPrefixPattern.ReplaceAllString(name, "")
	name = shortTokenPattern.ReplaceAllString(name, "")
	name = collapseSpacedCapitals(name)
	return strings.TrimSpace(name)
}

// collapseSpacedCapitals drops whitespace runs between two upper-case letters
func collapseSpacedCapitals(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) && unicode.IsUpper(prev) {
			j := i
			for j < len(s) {
				rr, sz := utf8.DecodeRuneInString(s[j:])
				if !unicode.IsSpace(rr) {
					break
				}
				j += sz
			}
			if j < len(s) {
				next, _ := utf8.DecodeRuneInString(s[j:])
				if unicode.IsUpper(next) {
					i = j
					continue
				}
			}
		}
		b.WriteRune(r)
		prev = r
		i += size
	}
	return b.String()
}
