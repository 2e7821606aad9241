package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SourceKind is the type of automatic import source behind a setup.
type SourceKind string

const (
	SourceKindBankAPI SourceKind = "bank_api"
	SourceKindEmail   SourceKind = "email"
)

// IsValid reports whether k is a supported source kind.
func (k SourceKind) IsValid() bool {
	return k == SourceKindBankAPI || k == SourceKindEmail
}

// ImportSetup links an account to an automatic import source.
type ImportSetup struct {
	SetupID          string     `json:"setupID"`
	UserID           string     `json:"userID"`
	AccountID        string     `json:"accountID"`
	Kind             SourceKind `json:"kind"`
	DisplayName      string     `json:"displayName"`
	ExternalRef      string     `json:"externalRef"` // Aggregator item ID or mailbox search query
	WebhookTokenHash string     `json:"-"`
	SyncCursor       *string    `json:"syncCursor,omitempty"`
	LastSyncedAt     *time.Time `json:"lastSyncedAt,omitempty"`
	IsActive         bool       `json:"isActive"`
	AuditFields
}

// CommittedTransaction is an entry in the committed-hash index.
// LedgerRef is nil until the ledger commit succeeds; rows that stay nil are orphans.
type CommittedTransaction struct {
	CommittedID string          `json:"committedID"`
	AccountID   string          `json:"accountID"`
	Hash        string          `json:"hash"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	Forced      bool            `json:"forced"` // Committed through force-include despite a duplicate flag
	LedgerRef   *string         `json:"ledgerRef,omitempty"`
	CommittedAt time.Time       `json:"committedAt"`
	CommittedBy string          `json:"committedBy"`
}

// LedgerEntry is what gets handed to the ledger collaborator on commit.
type LedgerEntry struct {
	CommittedID string               `json:"committedID"` // Committed-hash claim this entry fulfils
	AccountID   string               `json:"accountID"`
	Transaction CanonicalTransaction `json:"transaction"`
	Splits      []CategorySplit      `json:"splits"`
	CommittedBy string               `json:"committedBy"`
}
