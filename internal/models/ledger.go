package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerJournal is a row of ledger_journals: one committed import transaction.
type LedgerJournal struct {
	JournalID   string          `json:"journalID"`   // Primary Key
	CommittedID string          `json:"committedID"` // FK -> committed_transactions, survives a lost link
	AccountID   string          `json:"accountID"`
	JournalDate time.Time       `json:"journalDate"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"`    // Signed: income positive
	Direction   string          `json:"direction"` // income or expense
	Source      string          `json:"source"`
	SourceRef   *string         `json:"sourceRef"`
	AuditFields
}

// LedgerJournalLine is a category split within a LedgerJournal.
type LedgerJournalLine struct {
	LineID    string          `json:"lineID"`    // Primary Key
	JournalID string          `json:"journalID"` // FK -> ledger_journals
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"` // Positive
	AuditFields
}
