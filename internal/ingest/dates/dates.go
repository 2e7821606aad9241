// Package dates turns ambiguous date tokens from bank exports and statements
// into calendar dates. Dates are always built from an explicit (year, month, day)
// triple; nothing here goes through a timezone-aware constructor.
//
// A trailing clock time ("03/04/2024 14:30", "Mar 4, 2024 2:30 PM") is dropped
// before resolution.
//
// Resolution order:
//  1. the caller's known format, unless that format is day-first and the token
//     can only be month-first;
//  2. slash or dash tokens whose first group is 12 or less are read month-first
//     only, so "11/01/2025" is November 1;
//  3. the ordered format list, accepted only when the numeric groups round-trip;
//  4. an ISO-shaped (year, month, day) prefix, e.g. timestamps;
//  5. otherwise no date, confidence 0.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Format names a date layout. Names are persisted in import templates.
type Format string

const (
	MonthDayYear          Format = "MM/DD/YYYY"
	MonthDayYearDash      Format = "MM-DD-YYYY"
	MonthDayShortYear     Format = "MM/DD/YY"
	MonthDayShortYearDash Format = "MM-DD-YY"
	DayMonthYear          Format = "DD/MM/YYYY"
	DayMonthYearDash      Format = "DD-MM-YYYY"
	DayMonthYearDot       Format = "DD.MM.YYYY"
	DayMonthShortYear     Format = "DD/MM/YY"
	DayMonthShortYearDot  Format = "DD.MM.YY"
	ISO                   Format = "YYYY-MM-DD"
	ISOSlash              Format = "YYYY/MM/DD"
	Compact               Format = "YYYYMMDD"
	TextMonthDayYear      Format = "MMM DD, YYYY"
	DayTextMonthYear      Format = "DD MMM YYYY"
	MonthDay              Format = "MM/DD"
	TextMonthDay          Format = "MMM DD"
)

// Result is a parsed date with how it was obtained.
type Result struct {
	Date         civil.Date
	Format       Format
	Confidence   float64 // 0..1
	YearInferred bool
}

type part int

const (
	year part = iota
	month
	day
)

type layout struct {
	format     Format
	re         *regexp.Regexp
	order      [3]part
	textMonth  bool
	shortYear  bool
	dayFirst   bool
	confidence float64
}

var (
	mdy = [3]part{month, day, year}
	dmy = [3]part{day, month, year}
	ymd = [3]part{year, month, day}

	monthFirstLayouts = []layout{
		{format: MonthDayYear, re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), order: mdy},
		{format: MonthDayYearDash, re: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), order: mdy},
		{format: MonthDayShortYear, re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`), order: mdy, shortYear: true},
		{format: MonthDayShortYearDash, re: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2})$`), order: mdy, shortYear: true},
	}

	orderedLayouts = []layout{
		{format: ISO, re: regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), order: ymd, confidence: 0.95},
		{format: ISOSlash, re: regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`), order: ymd, confidence: 0.9},
		{format: Compact, re: regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`), order: ymd, confidence: 0.8},
		{format: TextMonthDayYear, re: regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`), order: mdy, textMonth: true, confidence: 0.9},
		{format: DayTextMonthYear, re: regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?[\s-]+([A-Za-z]{3,9})\.?,?[\s-]+(\d{4})$`), order: dmy, textMonth: true, confidence: 0.9},
		{format: DayMonthYear, re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), order: dmy, dayFirst: true, confidence: 0.8},
		{format: DayMonthYearDash, re: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), order: dmy, dayFirst: true, confidence: 0.8},
		{format: DayMonthYearDot, re: regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`), order: dmy, dayFirst: true, confidence: 0.8},
		{format: DayMonthShortYear, re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`), order: dmy, shortYear: true, dayFirst: true, confidence: 0.7},
		{format: DayMonthShortYearDot, re: regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})$`), order: dmy, shortYear: true, dayFirst: true, confidence: 0.7},
	}

	layoutsByFormat = map[Format]layout{}

	slashOrDash   = regexp.MustCompile(`^(\d{1,2})([/-])(\d{1,2})([/-])(\d{2}|\d{4})$`)
	isoPrefix     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T\s].*)?$`)
	trailingTime  = regexp.MustCompile(`^(.*\d)(?:T|\s+)\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:\s*[AaPp]\.?[Mm]\.?)?$`)
	numericGroups = regexp.MustCompile(`\d+`)

	yearlessNumeric = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	yearlessText    = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?$`)
	yearlessDayText = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?[\s-]+([A-Za-z]{3,9})\.?$`)

	monthNames = map[string]int{
		"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
		"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
		"aug": 8, "august": 8, "sep": 9, "sept": 9, "september": 9, "oct": 10, "october": 10,
		"nov": 11, "november": 11, "dec": 12, "december": 12,
	}
)

func init() {
	for _, l := range monthFirstLayouts {
		l.confidence = 0.9
		layoutsByFormat[l.format] = l
	}
	for _, l := range orderedLayouts {
		layoutsByFormat[l.format] = l
	}
}

// KnownFormat reports whether f is a format this package can parse.
func KnownFormat(f Format) bool {
	_, ok := layoutsByFormat[f]
	return ok
}

// IsDayFirst reports whether f reads the day before the month.
func IsDayFirst(f Format) bool {
	return layoutsByFormat[f].dayFirst
}

// Parse resolves token to a date. known may be empty.
func Parse(token string, known Format) (Result, bool) {
	tok := stripTime(token)
	if tok == "" {
		return Result{}, false
	}

	if l, ok := layoutsByFormat[known]; ok && !(l.dayFirst && onlyMonthFirst(tok)) {
		if d, ok := l.parse(tok); ok {
			return Result{Date: d, Format: l.format, Confidence: 0.95}, true
		}
	}

	if g := slashOrDash.FindStringSubmatch(tok); g != nil && g[2] == g[4] {
		first, _ := strconv.Atoi(g[1])
		second, _ := strconv.Atoi(g[3])
		if first <= 12 {
			for _, l := range monthFirstLayouts {
				d, ok := l.parse(tok)
				if !ok {
					continue
				}
				conf := 0.9
				if second <= 12 && second != first {
					conf = 0.7
				}
				if l.shortYear {
					conf -= 0.1
				}
				return Result{Date: d, Format: l.format, Confidence: conf}, true
			}
			return Result{}, false
		}
	}

	for _, l := range orderedLayouts {
		d, ok := l.parse(tok)
		if ok && l.roundTrips(tok, d) {
			return Result{Date: d, Format: l.format, Confidence: l.confidence}, true
		}
	}

	if g := isoPrefix.FindStringSubmatch(tok); g != nil {
		y, _ := strconv.Atoi(g[1])
		m, _ := strconv.Atoi(g[2])
		dd, _ := strconv.Atoi(g[3])
		if d, ok := build(y, m, dd); ok {
			return Result{Date: d, Format: ISO, Confidence: 0.6}, true
		}
	}

	return Result{}, false
}

// ParseYearless resolves a month/day token that carries no year, taking the
// year from ref by month rollover. The result is flagged YearInferred.
func ParseYearless(token string, ref civil.Date) (Result, bool) {
	tok := strings.TrimSpace(token)
	var m, d int
	var format Format
	if g := yearlessNumeric.FindStringSubmatch(tok); g != nil {
		m, _ = strconv.Atoi(g[1])
		d, _ = strconv.Atoi(g[2])
		format = MonthDay
	} else if g := yearlessText.FindStringSubmatch(tok); g != nil {
		m = monthNames[strings.ToLower(g[1])]
		d, _ = strconv.Atoi(g[2])
		format = TextMonthDay
	} else if g := yearlessDayText.FindStringSubmatch(tok); g != nil {
		m = monthNames[strings.ToLower(g[2])]
		d, _ = strconv.Atoi(g[1])
		format = TextMonthDay
	} else {
		return Result{}, false
	}
	date, ok := build(InferYear(m, ref), m, d)
	if !ok {
		return Result{}, false
	}
	return Result{Date: date, Format: format, Confidence: 0.6, YearInferred: true}, true
}

// InferYear picks the year for a yearless month: a month later than the
// reference month belongs to the previous year.
func InferYear(m int, ref civil.Date) int {
	if m > int(ref.Month) {
		return ref.Year - 1
	}
	return ref.Year
}

// DetectFormat picks the format that best explains a column of samples.
// Day-first evidence (a first group above 12) wins over the per-token
// month-first default unless a sample can only be month-first.
func DetectFormat(samples []string) Format {
	counts := map[Format]int{}
	dayFirstEvidence, monthFirstEvidence, shortYear := false, false, false
	var sep string
	for _, s := range samples {
		tok := stripTime(s)
		if g := slashOrDash.FindStringSubmatch(tok); g != nil && g[2] == g[4] {
			first, _ := strconv.Atoi(g[1])
			second, _ := strconv.Atoi(g[3])
			if first > 12 && second <= 12 {
				dayFirstEvidence = true
				sep = g[2]
				shortYear = len(g[5]) == 2
			}
			if first <= 12 && second > 12 {
				monthFirstEvidence = true
			}
		}
		if r, ok := Parse(tok, ""); ok {
			counts[r.Format]++
		}
	}
	if dayFirstEvidence && !monthFirstEvidence {
		switch {
		case sep == "-":
			return DayMonthYearDash
		case shortYear:
			return DayMonthShortYear
		default:
			return DayMonthYear
		}
	}
	var best Format
	bestCount := 0
	for _, f := range formatOrder() {
		if counts[f] > bestCount {
			best, bestCount = f, counts[f]
		}
	}
	return best
}

// Normalize renders d as YYYY-MM-DD.
func Normalize(d civil.Date) string {
	return d.String()
}

func formatOrder() []Format {
	out := make([]Format, 0, len(monthFirstLayouts)+len(orderedLayouts))
	for _, l := range monthFirstLayouts {
		out = append(out, l.format)
	}
	for _, l := range orderedLayouts {
		out = append(out, l.format)
	}
	return out
}

// stripTime trims tok and drops a trailing HH:MM[:SS][ AM/PM] clock time.
func stripTime(tok string) string {
	tok = strings.TrimSpace(tok)
	if g := trailingTime.FindStringSubmatch(tok); g != nil {
		return g[1]
	}
	return tok
}

// onlyMonthFirst reports whether a slash/dash token can only be read month-first.
func onlyMonthFirst(tok string) bool {
	g := slashOrDash.FindStringSubmatch(tok)
	if g == nil {
		return false
	}
	first, _ := strconv.Atoi(g[1])
	second, _ := strconv.Atoi(g[3])
	return first <= 12 && second > 12
}

func (l layout) values(tok string) (y, m, d int, ok bool) {
	g := l.re.FindStringSubmatch(tok)
	if g == nil {
		return 0, 0, 0, false
	}
	for i, p := range l.order {
		raw := g[i+1]
		switch p {
		case year:
			y, _ = strconv.Atoi(raw)
			if l.shortYear {
				y += 2000
			}
		case month:
			if l.textMonth {
				m = monthNames[strings.ToLower(raw)]
			} else {
				m, _ = strconv.Atoi(raw)
			}
		case day:
			d, _ = strconv.Atoi(raw)
		}
	}
	return y, m, d, true
}

func (l layout) parse(tok string) (civil.Date, bool) {
	y, m, d, ok := l.values(tok)
	if !ok {
		return civil.Date{}, false
	}
	return build(y, m, d)
}

// roundTrips re-extracts the numeric groups of tok and checks they match the
// parsed date in layout order.
func (l layout) roundTrips(tok string, date civil.Date) bool {
	var want []int
	for _, p := range l.order {
		switch p {
		case year:
			y := date.Year
			if l.shortYear {
				y -= 2000
			}
			want = append(want, y)
		case month:
			if !l.textMonth {
				want = append(want, int(date.Month))
			}
		case day:
			want = append(want, date.Day)
		}
	}
	if l.format == Compact {
		s := tok
		return len(s) == 8 && atoi(s[:4]) == want[0] && atoi(s[4:6]) == want[1] && atoi(s[6:]) == want[2]
	}
	got := numericGroups.FindAllString(tok, -1)
	if len(got) != len(want) {
		return false
	}
	for i, g := range got {
		if atoi(g) != want[i] {
			return false
		}
	}
	return true
}

func build(y, m, d int) (civil.Date, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1 {
		return civil.Date{}, false
	}
	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	if !date.IsValid() {
		return civil.Date{}, false
	}
	return date, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
