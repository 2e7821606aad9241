package domain

import (
	"encoding/csv"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Direction says whether money came into or went out of the account.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// IsValid reports whether d is one of the known directions.
func (d Direction) IsValid() bool {
	return d == Income || d == Expense
}

// DedupStatus is the outcome of the three-tier duplicate check.
type DedupStatus string

const (
	DedupUnique              DedupStatus = "unique"
	DedupDuplicateWithinFile DedupStatus = "duplicate_within_file"
	DedupDuplicateDatabase   DedupStatus = "duplicate_database"
	DedupDuplicatePending    DedupStatus = "duplicate_pending"
)

// IsDuplicate reports whether the status excludes the transaction by default.
func (s DedupStatus) IsDuplicate() bool {
	return s != "" && s != DedupUnique
}

// Source identifies the ingestion path a transaction came through.
type Source string

const (
	SourceTabular       Source = "tabular"
	SourceStatementText Source = "statement_text"
	SourceDocument      Source = "document"
	SourceImage         Source = "image"
	SourceBankAPI       Source = "bank_api"
	SourceEmail         Source = "email"
)

// RawRow is one row of tabular input, cells in source order.
type RawRow []string

// Text renders the row as one CSV record for hashing and audit. Cells holding
// commas or quotes are quoted, so distinct rows never render alike.
func (r RawRow) Text() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(r) // strings.Builder never fails
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// CanonicalTransaction is the normalized shape every ingestion path produces.
type CanonicalTransaction struct {
	Date              civil.Date      `json:"date"`
	Description       string          `json:"description"`
	Merchant          string          `json:"merchant"`
	Amount            decimal.Decimal `json:"amount"` // Always positive; Direction carries the sign
	Direction         Direction       `json:"direction"`
	RawRow            string          `json:"rawRow,omitempty"`
	Hash              string          `json:"hash"`
	DedupStatus       DedupStatus     `json:"dedupStatus"`
	YearInferred      bool            `json:"yearInferred,omitempty"` // Date year came from month-rollover inference
	Source            Source          `json:"source"`
	SourceRef         string          `json:"sourceRef,omitempty"` // Provider transaction ID, mail message ID, ...
	RowNumber         int             `json:"rowNumber,omitempty"` // 1-based position in the source, 0 if unknown
	SuggestedCategory string          `json:"suggestedCategory,omitempty"`
}

// SignedAmount returns the amount with income positive and expense negative.
func (t CanonicalTransaction) SignedAmount() decimal.Decimal {
	if t.Direction == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// RowIssue records a source row that could not be mapped.
type RowIssue struct {
	RowNumber int    `json:"rowNumber"`
	Reason    string `json:"reason"`
	Raw       string `json:"raw,omitempty"`
}

var (
	merchantPrefixes = []string{
		"DEBIT CARD PURCHASE ", "CHECKCARD ", "POS PURCHASE ", "POS DEBIT ", "POS ",
		"PURCHASE AUTHORIZED ON ", "PURCHASE ", "CARD PURCHASE ", "RECURRING ",
		"SQ *", "TST* ", "PAYPAL *",
	}
	merchantNoise = regexp.MustCompile(`(?i)((x{2,}|\*{2,})\d{2,}|#\s?\d+|\b\d{2}/\d{2}\b|\bcard\s+\d{4}\b|\b\d{6,}\b)`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// MerchantFromDescription derives a display merchant from a raw bank description.
func MerchantFromDescription(desc string) string {
	m := strings.TrimSpace(desc)
	upper := strings.ToUpper(m)
	for _, p := range merchantPrefixes {
		if strings.HasPrefix(upper, p) {
			m = m[len(p):]
			upper = upper[len(p):]
		}
	}
	m = merchantNoise.ReplaceAllString(m, " ")
	m = multiSpace.ReplaceAllString(m, " ")
	m = strings.Trim(m, " -*,")
	if m == "" {
		return strings.TrimSpace(desc)
	}
	return m
}
