package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueueItem is a row of import_queue_items. The hash and amount are
// denormalized out of the JSONB payload for dedup and listing.
type QueueItem struct {
	ItemID      string          `json:"itemID"` // Primary Key
	BatchID     string          `json:"batchID"`
	SetupID     *string         `json:"setupID"`
	AccountID   string          `json:"accountID"`
	Hash        string          `json:"hash"`
	TxnDate     time.Time       `json:"txnDate"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Payload     []byte          `json:"payload"` // JSON encoded CanonicalTransaction
	Status      string          `json:"status"`
	ReviewedBy  *string         `json:"reviewedBy"`
	ReviewedAt  *time.Time      `json:"reviewedAt"`
	ReviewNotes *string         `json:"reviewNotes"`
	LedgerRef   *string         `json:"ledgerRef"`
	AuditFields
}

// BatchStatusCount is one row of the per-batch status aggregation.
type BatchStatusCount struct {
	BatchID   string
	AccountID string
	SetupID   *string
	Status    string
	Count     int
	CreatedAt time.Time
}
