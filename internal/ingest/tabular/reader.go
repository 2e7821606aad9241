// Package tabular reads delimited spreadsheet exports into raw rows.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
)

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Table is the parsed content of a delimited file.
type Table struct {
	Delimiter rune
	Rows      []domain.RawRow
}

// Read parses data, sniffing the delimiter from the first lines. Blank rows
// are dropped; rows keep their own width.
func Read(data []byte) (Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, errors.New("empty file")
	}
	delim := SniffDelimiter(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows []domain.RawRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read delimited row %d: %w", len(rows)+1, err)
		}
		if blank(rec) {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, domain.RawRow(rec))
	}
	return Table{Delimiter: delim, Rows: rows}, nil
}

// SniffDelimiter picks the candidate that splits the first lines into the most
// consistent, widest column count.
func SniffDelimiter(data []byte) rune {
	lines := firstLines(string(data), 10)
	best, bestScore := ',', -1
	for _, d := range candidateDelimiters {
		counts := make(map[int]int)
		for _, l := range lines {
			counts[strings.Count(l, string(d))]++
		}
		mode, modeFreq := 0, 0
		for n, f := range counts {
			if f > modeFreq || (f == modeFreq && n > mode) {
				mode, modeFreq = n, f
			}
		}
		if mode == 0 {
			continue
		}
		score := modeFreq*100 + mode
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func firstLines(s string, n int) []string {
	out := make([]string, 0, n)
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) == n {
			break
		}
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Rows converts plain string rows (e.g. from a vision extractor) into raw rows,
// dropping blank ones.
func Rows(cells [][]string) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(cells))
	for _, c := range cells {
		if blank(c) {
			continue
		}
		row := make(domain.RawRow, len(c))
		for i := range c {
			row[i] = strings.TrimSpace(c[i])
		}
		out = append(out, row)
	}
	return out
}
