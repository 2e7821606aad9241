// Package amounts parses currency-like tokens found in exports and statements.
package amounts

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyNoise = regexp.MustCompile(`(?i)(usd|eur|gbp|cad|aud|[$€£¥₹])`)
	digitsOnly    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	// Token matches an amount embedded in free text: optional sign or parenthesis,
	// optional currency symbol, digits with comma thousands separators and
	// exactly two decimals. Spaces never group digits.
	Token = regexp.MustCompile(`\(?[-−]?\s?[$€£]?\s?[-−]?\d{1,3}(?:,\d{3})*(?:\.\d{2})\)?-?|\(?[-−]?[$€£]?\d+\.\d{2}\)?-?`)
)

// Parse converts a cell or token into a signed decimal. Parentheses and leading
// or trailing minus signs mean negative. It returns false when the token holds
// no number.
func Parse(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "−", "-")
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(upper, "CR"):
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "DR"):
		negative = !negative
		s = strings.TrimSpace(s[:len(s)-2])
	}
	s = currencyNoise.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	for strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = normalizeSeparators(s)
	if !digitsOnly.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalizeSeparators resolves thousands and decimal separators into a plain
// "1234.56" form. A comma followed by exactly two trailing digits with no dot
// is a decimal comma.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

// LooksLikeAmount reports whether token parses as an amount.
func LooksLikeAmount(token string) bool {
	_, ok := Parse(token)
	return ok
}
