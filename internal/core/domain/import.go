package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DedupSummary counts the outcome of the three-tier duplicate check.
type DedupSummary struct {
	Unique              int `json:"unique"`
	DuplicateWithinFile int `json:"duplicateWithinFile"`
	DuplicateDatabase   int `json:"duplicateDatabase"`
	DuplicatePending    int `json:"duplicatePending"`
}

// Duplicates returns the number of flagged transactions.
func (s DedupSummary) Duplicates() int {
	return s.DuplicateWithinFile + s.DuplicateDatabase + s.DuplicatePending
}

// ImportPreview is a reviewable, not yet committed, extraction result.
type ImportPreview struct {
	AccountID        string                 `json:"accountID"`
	Source           Source                 `json:"source"`
	FormatRecognized bool                   `json:"formatRecognized"`
	Message          string                 `json:"message,omitempty"`
	Mapping          *ColumnMapping         `json:"mapping,omitempty"`
	Fingerprint      string                 `json:"fingerprint,omitempty"`
	TemplateID       *string                `json:"templateID,omitempty"` // Set when a saved template drove the mapping
	Strategy         string                 `json:"strategy,omitempty"`   // Statement grammar that matched
	Transactions     []CanonicalTransaction `json:"transactions"`
	Issues           []RowIssue             `json:"issues,omitempty"`
	Dedup            DedupSummary           `json:"dedup"`
	Warnings         []string               `json:"warnings,omitempty"`
	ArchiveRef       string                 `json:"archiveRef,omitempty"`
}

// CommitRequest asks for transactions from a preview to be committed.
type CommitRequest struct {
	UserID       string
	AccountID    string
	Transactions []CanonicalTransaction
	ForceInclude map[string]bool            // hash -> commit despite a duplicate flag
	Splits       map[string][]CategorySplit // hash -> category splits
}

// CommitFailure explains why one transaction was not committed.
type CommitFailure struct {
	Hash   string `json:"hash"`
	ItemID string `json:"itemID,omitempty"`
	Reason string `json:"reason"`
}

// CommittedRef links a committed transaction to its ledger journal.
type CommittedRef struct {
	Hash      string `json:"hash"`
	ItemID    string `json:"itemID,omitempty"`
	LedgerRef string `json:"ledgerRef"`
}

// CommitResult reports every input transaction exactly once.
type CommitResult struct {
	Committed         []CommittedRef  `json:"committed"`
	SkippedDuplicates int             `json:"skippedDuplicates"`
	Failed            []CommitFailure `json:"failed,omitempty"`
}

// EnqueueResult reports what an automatic import added to the review queue.
type EnqueueResult struct {
	BatchID  string       `json:"batchID"`
	Received int          `json:"received"`
	Enqueued int          `json:"enqueued"`
	Dedup    DedupSummary `json:"dedup"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ItemApproval carries the reviewer's splits for one queue item.
type ItemApproval struct {
	ItemID string          `json:"itemID" validate:"required"`
	Splits []CategorySplit `json:"splits"`
}

// Document is an uploaded or fetched file.
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// IsImage reports whether the document should go through vision extraction.
func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// IsTabular reports whether the document is a delimited export.
func (d Document) IsTabular() bool {
	name := strings.ToLower(d.Filename)
	switch {
	case d.MIMEType == "text/csv", d.MIMEType == "text/tab-separated-values":
		return true
	case strings.HasSuffix(name, ".csv"), strings.HasSuffix(name, ".tsv"), strings.HasSuffix(name, ".txt") && d.MIMEType != "application/pdf":
		return true
	}
	return false
}

// BankTransaction is one item from a bank aggregator feed.
type BankTransaction struct {
	ProviderID  string          `json:"providerID"`
	AccountRef  string          `json:"accountRef"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Amount      decimal.Decimal `json:"amount"` // Positive; Direction carries the sign
	Direction   Direction       `json:"direction"`
	Pending     bool            `json:"pending"`
}

// BankFeedPage is one page of an incremental aggregator sync.
type BankFeedPage struct {
	Transactions []BankTransaction
	NextCursor   *string
	HasMore      bool
}

// MailMessage is a mailbox message that may carry statement attachments.
type MailMessage struct {
	ID         string
	Subject    string
	From       string
	ReceivedAt time.Time
}
