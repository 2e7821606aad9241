package statement

import (
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/ingest/amounts"
)

var financeKeywords = regexp.MustCompile(`(?i)\b(purchase|payment|transfer|deposit|withdrawal|fee|charge|refund|credit|debit)s?\b`)

// scanGeneric accepts any line holding a date token and a currency-like token.
func scanGeneric(lines []string, ref civil.Date) []parsedLine {
	var out []parsedLine
	for i, line := range lines {
		if isSummaryLine(line) {
			continue
		}
		dloc := dateAnywhere.FindStringIndex(line)
		if dloc == nil {
			continue
		}
		d, ok := resolveDate(line[dloc[0]:dloc[1]], ref)
		if !ok {
			continue
		}
		rest := line[:dloc[0]] + " " + line[dloc[1]:]
		p, ok := lineAmount(rest)
		if !ok {
			continue
		}
		p.lineNumber = i + 1
		p.date = d.Date
		p.yearInferred = d.YearInferred
		p.direction = StrategyGeneric.direction(p.amount, p.description)
		p.raw = strings.TrimSpace(line)
		out = append(out, p)
	}
	return out
}

// scanKeywords accepts lines naming a finance keyword. A line without a date
// takes the last date seen above it.
func scanKeywords(lines []string, ref civil.Date) []parsedLine {
	var out []parsedLine
	var last civil.Date
	lastInferred := false
	for i, line := range lines {
		rest := line
		if dloc := dateAnywhere.FindStringIndex(line); dloc != nil {
			if d, ok := resolveDate(line[dloc[0]:dloc[1]], ref); ok {
				last, lastInferred = d.Date, d.YearInferred
				rest = line[:dloc[0]] + " " + line[dloc[1]:]
			}
		}
		if last.IsZero() || isSummaryLine(line) || !financeKeywords.MatchString(line) {
			continue
		}
		p, ok := lineAmount(rest)
		if !ok {
			continue
		}
		p.lineNumber = i + 1
		p.date = last
		p.yearInferred = lastInferred
		p.direction = StrategyKeyword.direction(p.amount, p.description)
		p.raw = strings.TrimSpace(line)
		out = append(out, p)
	}
	return out
}

// lineAmount takes the last amount token in s; the remaining text is the description.
func lineAmount(s string) (parsedLine, bool) {
	locs := amounts.Token.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return parsedLine{}, false
	}
	loc := locs[len(locs)-1]
	v, ok := parseAmount(s[loc[0]:loc[1]])
	if !ok {
		return parsedLine{}, false
	}
	desc := normalizeSpaces(strings.Trim(s[:loc[0]]+" "+s[loc[1]:], " -:|"))
	return parsedLine{description: desc, amount: v}, true
}
