package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommittedTransaction is a row of committed_transactions, the committed-hash index.
type CommittedTransaction struct {
	CommittedID string          `json:"committedID"` // Primary Key
	AccountID   string          `json:"accountID"`
	Hash        string          `json:"hash"`
	TxnDate     time.Time       `json:"txnDate"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"direction"`
	Forced      bool            `json:"forced"`
	LedgerRef   *string         `json:"ledgerRef"` // Nullable until the ledger write is linked
	CommittedAt time.Time       `json:"committedAt"`
	CommittedBy string          `json:"committedBy"`
}
