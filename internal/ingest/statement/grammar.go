package statement

import (
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/shopspring/decimal"
)

var (
	cardHeaderRe = regexp.MustCompile(`(?i)\btrans(?:action|\.)?\s*date\b|\bpost(?:ing|ed|\.)?\s*date\b`)
	cardLineRe   = regexp.MustCompile(`^\s*(` + datePattern + `)\s+(?:(` + datePattern + `)\s+)?(.+?)\s*(` + amountPattern + `)\s*$`)

	bankHeaderDebitRe   = regexp.MustCompile(`(?i)\b(debits?|withdrawals?|paid\s+out)\b`)
	bankHeaderCreditRe  = regexp.MustCompile(`(?i)\b(credits?|deposits?|paid\s+in)\b`)
	bankHeaderBalanceRe = regexp.MustCompile(`(?i)\bbalance\b`)
	leadingDateRe       = regexp.MustCompile(`^\s*(` + datePattern + `)\b`)
	signedLineRe        = regexp.MustCompile(`^\s*(` + datePattern + `)\s+(.+?)\s+(` + amountPattern + `)\s*$`)
	columnSplitRe       = regexp.MustCompile(`\S+(?:\s\S+)*`)
)

// parseCard reads card statement rows. Lines are accepted after a
// trans/post date header that has no debit/credit columns, or anywhere when
// they carry both dates. The post date is canonical when present.
func parseCard(lines []string, ref civil.Date) []parsedLine {
	var out []parsedLine
	inTable := false
	for i, line := range lines {
		// a header with debit and credit columns belongs to the bank grammar
		if _, ok := findBankHeader(line); ok {
			inTable = false
			continue
		}
		if cardHeaderRe.MatchString(line) && !cardLineRe.MatchString(line) {
			inTable = true
			continue
		}
		m := cardLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !inTable && m[2] == "" {
			continue
		}
		dateTok := m[1]
		if m[2] != "" {
			dateTok = m[2]
		}
		d, ok := resolveDate(dateTok, ref)
		if !ok {
			continue
		}
		amount, ok := parseAmount(m[4])
		if !ok {
			continue
		}
		desc := normalizeSpaces(strings.TrimRight(m[3], " -"))
		if desc == "" || isSummaryLine(desc) {
			continue
		}
		out = append(out, parsedLine{
			lineNumber:   i + 1,
			date:         d.Date,
			yearInferred: d.YearInferred,
			description:  desc,
			amount:       amount,
			direction:    StrategyCard.direction(amount, desc),
			raw:          strings.TrimSpace(line),
		})
	}
	return out
}

type bankHeader struct {
	debitPos, creditPos int
	hasBalance          bool
}

func findBankHeader(line string) (bankHeader, bool) {
	d := bankHeaderDebitRe.FindStringIndex(line)
	c := bankHeaderCreditRe.FindStringIndex(line)
	if d == nil || c == nil || leadingDateRe.MatchString(line) {
		return bankHeader{}, false
	}
	return bankHeader{
		debitPos:   (d[0] + d[1]) / 2,
		creditPos:  (c[0] + c[1]) / 2,
		hasBalance: bankHeaderBalanceRe.MatchString(line),
	}, true
}

// parseBank reads checking/savings statements. With a debit/credit header the
// columns decide the direction; without one the trailing amount is signed.
func parseBank(lines []string, ref civil.Date) []parsedLine {
	for i, line := range lines {
		if h, ok := findBankHeader(line); ok {
			return parseBankColumns(lines, i+1, h, ref)
		}
	}
	return parseBankSigned(lines, ref)
}

func parseBankColumns(lines []string, start int, h bankHeader, ref civil.Date) []parsedLine {
	var out []parsedLine
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if next, ok := findBankHeader(line); ok {
			h = next
			continue
		}
		dm := leadingDateRe.FindStringSubmatch(line)
		if dm == nil {
			continue
		}
		d, ok := resolveDate(dm[1], ref)
		if !ok {
			continue
		}

		// Fields are separated by runs of two or more spaces.
		spans := columnSplitRe.FindAllStringIndex(line, -1)
		type numeric struct {
			value  decimal.Decimal
			center int
		}
		var nums []numeric
		descEnd := len(spans)
		for j := len(spans) - 1; j >= 1; j-- {
			tok := line[spans[j][0]:spans[j][1]]
			v, ok := parseAmount(tok)
			if !ok || !strings.Contains(tok, ".") {
				break
			}
			nums = append([]numeric{{v, (spans[j][0] + spans[j][1]) / 2}}, nums...)
			descEnd = j
		}
		if len(nums) == 0 {
			continue
		}
		if h.hasBalance && len(nums) > 1 {
			nums = nums[:len(nums)-1]
		}

		var debit, credit decimal.Decimal
		switch {
		case len(nums) >= 2:
			debit, credit = nums[len(nums)-2].value, nums[len(nums)-1].value
		case abs(nums[0].center-h.debitPos) <= abs(nums[0].center-h.creditPos):
			debit = nums[0].value
		default:
			credit = nums[0].value
		}
		signed := credit.Abs().Sub(debit.Abs())

		var descParts []string
		for j := 0; j < descEnd; j++ {
			descParts = append(descParts, line[spans[j][0]:spans[j][1]])
		}
		desc := normalizeSpaces(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.Join(descParts, " ")), strings.TrimSpace(dm[1]))))
		if isSummaryLine(desc) {
			continue
		}
		dir := domain.Income
		if signed.IsNegative() {
			dir = domain.Expense
		}
		out = append(out, parsedLine{
			lineNumber:   i + 1,
			date:         d.Date,
			yearInferred: d.YearInferred,
			description:  desc,
			amount:       signed,
			direction:    dir,
			raw:          strings.TrimSpace(line),
		})
	}
	return out
}

func parseBankSigned(lines []string, ref civil.Date) []parsedLine {
	var out []parsedLine
	for i, line := range lines {
		m := signedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		d, ok := resolveDate(m[1], ref)
		if !ok {
			continue
		}
		amount, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		desc := normalizeSpaces(m[2])
		if isSummaryLine(desc) {
			continue
		}
		out = append(out, parsedLine{
			lineNumber:   i + 1,
			date:         d.Date,
			yearInferred: d.YearInferred,
			description:  desc,
			amount:       amount,
			direction:    StrategyBank.direction(amount, desc),
			raw:          strings.TrimSpace(line),
		})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
