// Package rowmap applies a column mapping to raw tabular rows and produces
// canonical transactions.
package rowmap

import (
	"strings"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/amounts"
	"github.com/SscSPs/txn_ingest/internal/ingest/dates"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/shopspring/decimal"
)

// Options carries per-file context stamped on every produced transaction.
type Options struct {
	Source    domain.Source
	SourceRef string
}

// Result is the outcome of Map.
type Result struct {
	Transactions []domain.CanonicalTransaction `json:"transactions"`
	Issues       []domain.RowIssue             `json:"issues,omitempty"`
	ZeroAmount   int                           `json:"zeroAmount"` // rows skipped because the amount was zero
}

// Map converts rows using m. Rows whose date or amount cannot be parsed are
// reported as issues and skipped; an unrecognized mapping yields nothing.
func Map(rows []domain.RawRow, m domain.ColumnMapping, opts Options) Result {
	var res Result
	if !m.Recognized() {
		return res
	}
	if opts.Source == "" {
		opts.Source = domain.SourceTabular
	}
	start := 0
	if m.HasHeader {
		start = 1
	}
	format := dates.Format(m.DateFormat)

	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNumber := i + 1
		issue := func(reason string) {
			res.Issues = append(res.Issues, domain.RowIssue{RowNumber: rowNumber, Reason: reason, Raw: row.Text()})
		}

		parsed, ok := dates.Parse(cell(row, m.DateColumn), format)
		if !ok {
			issue("unparseable date")
			continue
		}
		signed, ok := signedAmount(row, m)
		if !ok {
			issue("unparseable amount")
			continue
		}
		if signed.IsZero() {
			res.ZeroAmount++
			continue
		}

		desc := description(row, m)
		txn := domain.CanonicalTransaction{
			Date:         parsed.Date,
			Description:  desc,
			Merchant:     domain.MerchantFromDescription(desc),
			Amount:       signed.Abs(),
			Direction:    domain.Income,
			RawRow:       row.Text(),
			YearInferred: parsed.YearInferred,
			Source:       opts.Source,
			SourceRef:    opts.SourceRef,
			RowNumber:    rowNumber,
		}
		if signed.IsNegative() {
			txn.Direction = domain.Expense
		}
		dedup.HashTransaction(&txn)
		res.Transactions = append(res.Transactions, txn)
	}
	return res
}

// signedAmount returns the row amount with income positive.
func signedAmount(row domain.RawRow, m domain.ColumnMapping) (decimal.Decimal, bool) {
	switch m.SignConvention {
	case domain.SignedAmount:
		return amounts.Parse(cell(row, m.AmountColumn))
	case domain.InvertedAmount:
		v, ok := amounts.Parse(cell(row, m.AmountColumn))
		return v.Neg(), ok
	case domain.DebitCredit:
		debit, dok := optionalAmount(cell(row, m.DebitColumn))
		credit, cok := optionalAmount(cell(row, m.CreditColumn))
		if !dok || !cok {
			return decimal.Zero, false
		}
		return credit.Abs().Sub(debit.Abs()), true
	}
	return decimal.Zero, false
}

// optionalAmount treats an empty cell or a dash as zero.
func optionalAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, true
	}
	return amounts.Parse(s)
}

// description uses the mapped column, falling back to the unmapped text cells.
func description(row domain.RawRow, m domain.ColumnMapping) string {
	if m.DescriptionColumn != nil {
		if d := dedup.NormalizeDescription(cell(row, m.DescriptionColumn)); d != "" {
			return d
		}
	}
	used := map[int]bool{}
	for _, c := range []*int{m.DateColumn, m.AmountColumn, m.DebitColumn, m.CreditColumn} {
		if c != nil {
			used[*c] = true
		}
	}
	var parts []string
	for i, c := range row {
		if used[i] || strings.TrimSpace(c) == "" || amounts.LooksLikeAmount(c) {
			continue
		}
		parts = append(parts, strings.TrimSpace(c))
	}
	return dedup.NormalizeDescription(strings.Join(parts, " "))
}

func cell(row domain.RawRow, idx *int) string {
	if idx == nil || *idx < 0 || *idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[*idx])
}

// DateConfidence is the mean confidence of parsing the mapped date column of
// the first sampleSize data rows with the mapping's format. Unparseable cells
// count as zero. A saved template whose format scores low is stale.
func DateConfidence(rows []domain.RawRow, m domain.ColumnMapping, sampleSize int) float64 {
	if m.DateColumn == nil {
		return 0
	}
	start := 0
	if m.HasHeader {
		start = 1
	}
	total, n := 0.0, 0
	for i := start; i < len(rows) && n < sampleSize; i++ {
		c := cell(rows[i], m.DateColumn)
		if c == "" {
			continue
		}
		n++
		if r, ok := dates.Parse(c, dates.Format(m.DateFormat)); ok {
			total += r.Confidence
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
