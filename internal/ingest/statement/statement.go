// Package statement recovers transactions from plain text extracted from a
// statement document. Strategies run in a fixed order, most specific first,
// and the first one that yields a transaction wins:
//
//  1. card grammar (transaction table with trans/post dates)
//  2. bank grammar (debit/credit columns or a signed trailing amount)
//  3. generic date plus amount scan
//  4. finance keyword scan
package statement

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/amounts"
	"github.com/SscSPs/txn_ingest/internal/ingest/dates"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/shopspring/decimal"
)

// Strategy names the grammar that produced a result.
type Strategy string

const (
	StrategyNone    Strategy = ""
	StrategyCard    Strategy = "card"
	StrategyBank    Strategy = "bank"
	StrategyGeneric Strategy = "generic"
	StrategyKeyword Strategy = "keyword"
)

// convention maps an amount's sign to a direction for one strategy. Card
// statements and deposit accounts read the sign in opposite ways.
type convention struct {
	Negative domain.Direction
	Positive domain.Direction
	// ByKeyword makes unsigned amounts take their direction from the description.
	ByKeyword bool
}

var conventions = map[Strategy]convention{
	StrategyCard:    {Negative: domain.Income, Positive: domain.Expense},
	StrategyBank:    {Negative: domain.Expense, Positive: domain.Income},
	StrategyGeneric: {Negative: domain.Expense, Positive: domain.Expense, ByKeyword: true},
	StrategyKeyword: {Negative: domain.Expense, Positive: domain.Expense, ByKeyword: true},
}

func (s Strategy) direction(amount decimal.Decimal, desc string) domain.Direction {
	c := conventions[s]
	if amount.IsNegative() {
		return c.Negative
	}
	if c.ByKeyword {
		return keywordDirection(desc, c.Positive)
	}
	return c.Positive
}

// Options configures an extraction run.
type Options struct {
	// Today is the fallback reference for yearless dates when the text does
	// not declare a closing date. Zero means the current UTC date.
	Today     civil.Date
	Source    domain.Source
	SourceRef string
}

// Result is the outcome of Extract.
type Result struct {
	Transactions     []domain.CanonicalTransaction `json:"transactions"`
	Strategy         Strategy                      `json:"strategy"`
	FormatRecognized bool                          `json:"formatRecognized"`
	ReferenceDate    civil.Date                    `json:"referenceDate"`
	Warnings         []string                      `json:"warnings,omitempty"`
}

type strategyFunc func(lines []string, ref civil.Date) []parsedLine

type parsedLine struct {
	lineNumber   int
	date         civil.Date
	yearInferred bool
	description  string
	amount       decimal.Decimal // signed as printed
	direction    domain.Direction
	raw          string
}

var order = []struct {
	name Strategy
	run  strategyFunc
}{
	{StrategyCard, parseCard},
	{StrategyBank, parseBank},
	{StrategyGeneric, scanGeneric},
	{StrategyKeyword, scanKeywords},
}

// Extract runs the strategies over text and returns the first non-empty result.
func Extract(text string, opts Options) Result {
	if opts.Source == "" {
		opts.Source = domain.SourceStatementText
	}
	ref, declared := ClosingDate(text)
	if !declared {
		ref = opts.Today
		if ref.IsZero() {
			ref = civil.DateOf(time.Now().UTC())
		}
	}
	res := Result{ReferenceDate: ref}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for _, s := range order {
		parsed := s.run(lines, ref)
		if len(parsed) == 0 {
			continue
		}
		res.Strategy = s.name
		res.FormatRecognized = true
		inferred := 0
		for _, p := range parsed {
			if p.amount.IsZero() {
				continue
			}
			txn := domain.CanonicalTransaction{
				Date:         p.date,
				Description:  p.description,
				Merchant:     domain.MerchantFromDescription(p.description),
				Amount:       p.amount.Abs(),
				Direction:    p.direction,
				RawRow:       p.raw,
				YearInferred: p.yearInferred,
				Source:       opts.Source,
				SourceRef:    opts.SourceRef,
				RowNumber:    p.lineNumber,
			}
			dedup.HashTransaction(&txn)
			res.Transactions = append(res.Transactions, txn)
			if p.yearInferred {
				inferred++
			}
		}
		if inferred > 0 {
			basis := "today's date"
			if declared {
				basis = "the statement closing date"
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"year inferred for %d transaction(s) from %s (%s); dates older than twelve months may be misplaced",
				inferred, basis, ref))
		}
		return res
	}
	res.Warnings = append(res.Warnings, "format not recognized")
	return res
}

const (
	fullDatePattern     = `\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}`
	yearlessDatePattern = `\d{1,2}/\d{1,2}|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-zA-Z]*\.?\s+\d{1,2}`
	datePattern         = `(?:` + fullDatePattern + `|` + yearlessDatePattern + `)`
	amountPattern       = `\(?[-+]?\s?\$?-?[\d,]*\d\.\d{2}\)?-?`
)

var (
	closingDateRe = regexp.MustCompile(`(?i)(?:closing|statement|ending|end)\s+date[:\s]+(` + fullDatePattern + `)`)
	periodEndRe   = regexp.MustCompile(`(?i)(?:statement\s+period|billing\s+period|period)[:\s].*?\b(?:to|through|-)\s+(` + fullDatePattern + `)`)
	dateAnywhere  = regexp.MustCompile(`\b` + datePattern + `\b`)
)

// ClosingDate finds the statement closing or period end date declared in text.
func ClosingDate(text string) (civil.Date, bool) {
	for _, re := range []*regexp.Regexp{closingDateRe, periodEndRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if r, ok := dates.Parse(normalizeSpaces(m[1]), ""); ok {
				return r.Date, true
			}
		}
	}
	return civil.Date{}, false
}

// resolveDate parses a full or yearless date token against ref.
func resolveDate(tok string, ref civil.Date) (dates.Result, bool) {
	tok = normalizeSpaces(tok)
	if r, ok := dates.Parse(tok, ""); ok {
		return r, true
	}
	return dates.ParseYearless(tok, ref)
}

func parseAmount(tok string) (decimal.Decimal, bool) {
	return amounts.Parse(strings.ReplaceAll(tok, " ", ""))
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	incomeKeywords = []string{"deposit", "refund", "credit", "payroll", "salary", "interest", "reversal", "cashback", "received"}
	skipKeywords   = []string{"balance", "total", "minimum payment", "payment due", "credit limit", "available credit", "page "}
)

func keywordDirection(desc string, fallback domain.Direction) domain.Direction {
	lower := strings.ToLower(desc)
	for _, k := range incomeKeywords {
		if strings.Contains(lower, k) {
			return domain.Income
		}
	}
	return fallback
}

func isSummaryLine(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range skipKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
