package columns

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const fingerprintVersion = "v1"

// Fingerprint identifies a file layout. With headers it covers the column
// count and the normalized header names; without headers it covers the column
// count and the per-column shape (date, number, text or empty), so two exports
// from the same bank map to the same template.
func Fingerprint(headers []string, columnCount int, cols []ColumnProfile) string {
	var b strings.Builder
	b.WriteString(fingerprintVersion)
	b.WriteString("|cols=")
	b.WriteString(strconv.Itoa(columnCount))
	if len(headers) > 0 {
		b.WriteString("|h=")
		for i, h := range headers {
			if i > 0 {
				b.WriteByte('|')
			}
			b.WriteString(NormalizeHeader(h))
		}
	} else {
		b.WriteString("|s=")
		for _, c := range cols {
			b.WriteByte(shape(c))
		}
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

func shape(c ColumnProfile) byte {
	switch {
	case c.FillRate == 0:
		return 'E'
	case c.DateScore >= roleThreshold:
		return 'D'
	case c.AmountScore >= roleThreshold:
		return 'N'
	default:
		return 'T'
	}
}

// NormalizeHeader lowercases a header, drops punctuation and collapses spaces.
func NormalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
