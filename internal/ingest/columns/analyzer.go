// Package columns infers the structure of an unknown tabular export: whether it
// has a header row, which column plays which role, and a structural fingerprint
// used to remember the mapping for the next file of the same shape.
package columns

import (
	"strings"
	"unicode"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/amounts"
	"github.com/SscSPs/txn_ingest/internal/ingest/dates"
)

const (
	// SampleSize is how many data rows are scored per column.
	SampleSize = 25
	// roleThreshold is the share of sampled cells that must match a role's shape.
	roleThreshold = 0.6
	textThreshold = 0.5
)

// Role is the semantic role assigned to a column.
type Role string

const (
	RoleDate        Role = "date"
	RoleAmount      Role = "amount"
	RoleDebit       Role = "debit"
	RoleCredit      Role = "credit"
	RoleDescription Role = "description"
	RoleBalance     Role = "balance"
	RoleUnknown     Role = ""
)

// ColumnProfile is the per-column scoring that drove role assignment.
type ColumnProfile struct {
	Index       int     `json:"index"`
	Header      string  `json:"header,omitempty"`
	DateScore   float64 `json:"dateScore"`
	AmountScore float64 `json:"amountScore"`
	TextScore   float64 `json:"textScore"`
	DecimalRate float64 `json:"decimalRate"`
	FillRate    float64 `json:"fillRate"`
	AvgLength   float64 `json:"avgLength"`
	Role        Role    `json:"role"`

	nonZero []bool
}

// Analysis is the result of Analyze.
type Analysis struct {
	HasHeader   bool                 `json:"hasHeader"`
	Headers     []string             `json:"headers,omitempty"`
	ColumnCount int                  `json:"columnCount"`
	Columns     []ColumnProfile      `json:"columns"`
	Mapping     domain.ColumnMapping `json:"mapping"`
	Fingerprint string               `json:"fingerprint"`
	SampledRows int                  `json:"sampledRows"`
}

// Recognized reports whether a date and an amount source were both found.
func (a Analysis) Recognized() bool {
	return a.Mapping.Recognized()
}

// Analyze infers the column mapping of rows. It never fails: when no column
// confidently takes the date or amount role those fields stay nil and the
// mapping is unrecognized.
func Analyze(rows []domain.RawRow) Analysis {
	a := Analysis{}
	if len(rows) == 0 {
		a.Fingerprint = Fingerprint(nil, 0, nil)
		return a
	}

	a.HasHeader = detectHeader(rows)
	data := rows
	if a.HasHeader {
		a.Headers = append([]string(nil), rows[0]...)
		data = rows[1:]
	}
	sample := data
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	a.SampledRows = len(sample)

	width := len(a.Headers)
	for _, r := range sample {
		if len(r) > width {
			width = len(r)
		}
	}
	a.ColumnCount = width

	a.Columns = make([]ColumnProfile, width)
	for i := 0; i < width; i++ {
		header := ""
		if i < len(a.Headers) {
			header = a.Headers[i]
		}
		a.Columns[i] = profile(i, header, sample)
	}

	a.Mapping = assignRoles(a.Columns, sample)
	a.Mapping.HasHeader = a.HasHeader
	if a.Mapping.DateColumn != nil {
		var samples []string
		for _, r := range sample {
			if *a.Mapping.DateColumn < len(r) {
				samples = append(samples, r[*a.Mapping.DateColumn])
			}
		}
		a.Mapping.DateFormat = string(dates.DetectFormat(samples))
	}
	a.Fingerprint = Fingerprint(a.Headers, width, a.Columns)
	return a
}

// detectHeader treats row 0 as a header when it has no date or amount shaped
// cells while later rows do.
func detectHeader(rows []domain.RawRow) bool {
	if shapedCells(rows[0]) > 0 {
		return false
	}
	if len(rows) == 1 {
		return hasLetters(strings.Join(rows[0], ""))
	}
	limit := len(rows)
	if limit > SampleSize+1 {
		limit = SampleSize + 1
	}
	for _, r := range rows[1:limit] {
		if shapedCells(r) > 0 {
			return true
		}
	}
	return false
}

func shapedCells(r domain.RawRow) int {
	n := 0
	for _, c := range r {
		if isDate(c) || isAmount(c) {
			n++
		}
	}
	return n
}

func isDate(cell string) bool {
	_, ok := dates.Parse(cell, "")
	return ok
}

func isAmount(cell string) bool {
	if !strings.ContainsAny(cell, "0123456789") || isDate(cell) {
		return false
	}
	return amounts.LooksLikeAmount(cell)
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func profile(idx int, header string, sample []domain.RawRow) ColumnProfile {
	p := ColumnProfile{Index: idx, Header: header, nonZero: make([]bool, len(sample))}
	nonEmpty, dateHits, amountHits, textHits, decimalHits, totalLen := 0, 0, 0, 0, 0, 0
	for i, r := range sample {
		if idx >= len(r) {
			continue
		}
		cell := strings.TrimSpace(r[idx])
		if cell == "" {
			continue
		}
		nonEmpty++
		totalLen += len(cell)
		switch {
		case isDate(cell):
			dateHits++
		case isAmount(cell):
			amountHits++
			if strings.ContainsAny(cell, ".,") {
				decimalHits++
			}
			if v, _ := amounts.Parse(cell); !v.IsZero() {
				p.nonZero[i] = true
			}
		case hasLetters(cell):
			textHits++
		}
	}
	if len(sample) > 0 {
		p.FillRate = float64(nonEmpty) / float64(len(sample))
	}
	if nonEmpty > 0 {
		n := float64(nonEmpty)
		p.DateScore = float64(dateHits) / n
		p.AmountScore = float64(amountHits) / n
		p.TextScore = float64(textHits) / n
		p.AvgLength = float64(totalLen) / n
		if amountHits > 0 {
			p.DecimalRate = float64(decimalHits) / float64(amountHits)
		}
	}
	return p
}

type headerHint int

const (
	hintNone headerHint = iota
	hintDate
	hintAmount
	hintDebit
	hintCredit
	hintBalance
	hintDescription
	hintIdentifier
)

var hintKeywords = []struct {
	hint     headerHint
	keywords []string
}{
	{hintBalance, []string{"balance", "running"}},
	{hintDebit, []string{"debit", "withdrawal", "paid out", "money out", "outflow", "charge"}},
	{hintCredit, []string{"credit", "deposit", "paid in", "money in", "inflow"}},
	{hintAmount, []string{"amount", "value", "sum", "total"}},
	{hintDate, []string{"date", "posted", "time"}},
	{hintIdentifier, []string{"ref", "id", "number", "no.", "check", "cheque", "account", "card"}},
	{hintDescription, []string{"description", "desc", "memo", "payee", "details", "narrative", "merchant", "name", "particulars", "transaction"}},
}

func hintFor(header string) headerHint {
	h := NormalizeHeader(header)
	if h == "" {
		return hintNone
	}
	words := strings.Fields(h)
	for _, hk := range hintKeywords {
		for _, kw := range hk.keywords {
			if strings.Contains(kw, " ") || strings.Contains(kw, ".") {
				if strings.Contains(h, kw) {
					return hk.hint
				}
				continue
			}
			for _, w := range words {
				if w == kw || (len(kw) > 3 && strings.HasPrefix(w, kw)) {
					return hk.hint
				}
			}
		}
	}
	return hintNone
}

// assignRoles applies the fixed precedence date, then amount/debit/credit, then description.
func assignRoles(cols []ColumnProfile, sample []domain.RawRow) domain.ColumnMapping {
	var m domain.ColumnMapping
	taken := make(map[int]bool)

	// Date: highest score wins, leftmost on ties.
	best := -1
	for i, c := range cols {
		if c.DateScore >= roleThreshold && (best < 0 || c.DateScore > cols[best].DateScore) {
			best = i
		}
	}
	if best >= 0 {
		m.DateColumn = domain.Col(best)
		cols[best].Role = RoleDate
		taken[best] = true
	}

	// Amount, debit, credit.
	var plain, debits, credits []int
	for i, c := range cols {
		if taken[i] || c.AmountScore < roleThreshold {
			continue
		}
		switch hintFor(c.Header) {
		case hintBalance:
			cols[i].Role = RoleBalance
			taken[i] = true
		case hintIdentifier, hintDate:
		case hintDebit:
			debits = append(debits, i)
		case hintCredit:
			credits = append(credits, i)
		default:
			plain = append(plain, i)
		}
	}

	setDebitCredit := func(d, c int) {
		m.DebitColumn, m.CreditColumn = domain.Col(d), domain.Col(c)
		m.SignConvention = domain.DebitCredit
		cols[d].Role, cols[c].Role = RoleDebit, RoleCredit
		taken[d], taken[c] = true, true
	}
	setAmount := func(a int) {
		m.AmountColumn = domain.Col(a)
		m.SignConvention = domain.SignedAmount
		if looksInverted(a, m.DescriptionColumn, cols, sample) {
			m.SignConvention = domain.InvertedAmount
		}
		cols[a].Role = RoleAmount
		taken[a] = true
	}

	switch {
	case len(debits) > 0 && len(credits) > 0:
		setDebitCredit(debits[0], credits[0])
	case len(plain) > 0 && !hasFullColumn(plain, cols):
		if d, c, ok := complementaryPair(append(append([]int{}, plain...), append(debits, credits...)...), cols); ok {
			setDebitCredit(d, c)
		} else {
			setAmount(pickAmount(plain, cols))
		}
	case len(plain) > 0:
		setAmount(pickAmount(plain, cols))
	case len(debits) > 0:
		setAmount(debits[0])
	case len(credits) > 0:
		setAmount(credits[0])
	}

	// Description: best text column, header hint first, longer text on ties.
	bestDesc, bestScore, bestLen := -1, 0.0, 0.0
	for i, c := range cols {
		if taken[i] || c.TextScore < textThreshold {
			continue
		}
		score := c.TextScore
		if hintFor(c.Header) == hintDescription {
			score += 1
		}
		if bestDesc < 0 || score > bestScore || (score == bestScore && c.AvgLength > bestLen) {
			bestDesc, bestScore, bestLen = i, score, c.AvgLength
		}
	}
	if bestDesc >= 0 {
		m.DescriptionColumn = domain.Col(bestDesc)
		cols[bestDesc].Role = RoleDescription
		if m.AmountColumn != nil && m.SignConvention == domain.SignedAmount && looksInverted(*m.AmountColumn, m.DescriptionColumn, cols, sample) {
			m.SignConvention = domain.InvertedAmount
		}
	}
	return m
}

func hasFullColumn(idx []int, cols []ColumnProfile) bool {
	for _, i := range idx {
		if cols[i].FillRate >= 0.9 {
			return true
		}
	}
	return false
}

// pickAmount prefers columns whose values carry decimals, then fuller ones, then leftmost.
func pickAmount(idx []int, cols []ColumnProfile) int {
	best := idx[0]
	for _, i := range idx[1:] {
		c, b := cols[i], cols[best]
		if c.DecimalRate > b.DecimalRate || (c.DecimalRate == b.DecimalRate && c.FillRate > b.FillRate) {
			best = i
		}
	}
	return best
}

// complementaryPair finds two numeric columns that are never both non-zero on
// the same row: an unlabeled debit/credit layout. The left one is debit.
func complementaryPair(idx []int, cols []ColumnProfile) (int, int, bool) {
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			left, right := idx[a], idx[b]
			if left > right {
				left, right = right, left
			}
			overlap, lhits, rhits := false, 0, 0
			for r := range cols[left].nonZero {
				if cols[left].nonZero[r] {
					lhits++
				}
				if cols[right].nonZero[r] {
					rhits++
				}
				if cols[left].nonZero[r] && cols[right].nonZero[r] {
					overlap = true
					break
				}
			}
			if !overlap && lhits > 0 && rhits > 0 {
				return left, right, true
			}
		}
	}
	return 0, 0, false
}

var paymentWords = []string{"payment", "thank you", "credit", "refund", "returned", "reversal"}

// looksInverted detects card exports where purchases are positive: nearly all
// amounts positive and every negative row reads like a payment or refund.
func looksInverted(amountCol int, descCol *int, cols []ColumnProfile, sample []domain.RawRow) bool {
	if descCol == nil {
		return false
	}
	pos, neg := 0, 0
	for _, r := range sample {
		if amountCol >= len(r) || *descCol >= len(r) {
			continue
		}
		v, ok := amounts.Parse(r[amountCol])
		if !ok || v.IsZero() {
			continue
		}
		if v.IsPositive() {
			pos++
			continue
		}
		neg++
		desc := strings.ToLower(r[*descCol])
		matched := false
		for _, w := range paymentWords {
			if strings.Contains(desc, w) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return neg > 0 && pos > 0 && float64(pos)/float64(pos+neg) >= 0.8
}
