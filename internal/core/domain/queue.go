package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/shopspring/decimal"
)

// QueueStatus is the review state of a queued import item.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueReviewing QueueStatus = "reviewing"
	QueueApproved  QueueStatus = "approved"
	QueueRejected  QueueStatus = "rejected"
	QueueImported  QueueStatus = "imported"
)

var queueTransitions = map[QueueStatus][]QueueStatus{
	QueuePending:   {QueueReviewing},
	QueueReviewing: {QueueApproved, QueueRejected},
	QueueApproved:  {QueueImported},
}

// IsValid reports whether s is a known queue status.
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueuePending, QueueReviewing, QueueApproved, QueueRejected, QueueImported:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s QueueStatus) CanTransitionTo(next QueueStatus) bool {
	for _, allowed := range queueTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidTransition is returned for a state change the review flow does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: invalid queue status transition", apperrors.ErrConflict)
	// ErrMissingSplits is returned when an item is committed without category splits.
	ErrMissingSplits = fmt.Errorf("%w: at least one category split is required", apperrors.ErrValidation)
	// ErrSplitMismatch is returned when splits do not add up to the transaction amount.
	ErrSplitMismatch = fmt.Errorf("%w: category splits must sum to the transaction amount", apperrors.ErrValidation)
)

// CategorySplit assigns part of a transaction amount to a category.
type CategorySplit struct {
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// ValidateSplits checks splits are present, positive and sum exactly to amount.
func ValidateSplits(amount decimal.Decimal, splits []CategorySplit) error {
	if len(splits) == 0 {
		return ErrMissingSplits
	}
	total := decimal.Zero
	for i, s := range splits {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("%w: split %d: %v", apperrors.ErrValidation, i, err)
		}
		if !s.Amount.IsPositive() {
			return fmt.Errorf("%w: split %d amount must be positive", apperrors.ErrValidation, i)
		}
		total = total.Add(s.Amount)
	}
	if !total.Equal(amount) {
		return fmt.Errorf("%w: splits total %s, amount %s", ErrSplitMismatch, total.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// QueuedImportItem is a transaction waiting in the review queue.
type QueuedImportItem struct {
	ItemID      string               `json:"itemID"`
	BatchID     string               `json:"batchID"`
	SetupID     *string              `json:"setupID,omitempty"` // Import setup that produced the item, nil for manual
	AccountID   string               `json:"accountID"`
	Transaction CanonicalTransaction `json:"transaction"`
	Status      QueueStatus          `json:"status"`
	ReviewedBy  *string              `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewedAt,omitempty"`
	ReviewNotes *string              `json:"reviewNotes,omitempty"`
	LedgerRef   *string              `json:"ledgerRef,omitempty"`
	AuditFields
}

// Transition moves the item to next, recording who did it and when.
// Moving to imported goes through MarkImported instead.
func (i *QueuedImportItem) Transition(next QueueStatus, reviewer string, at time.Time, notes *string) error {
	if next == QueueImported {
		return fmt.Errorf("%w: use MarkImported to import item %s", ErrInvalidTransition, i.ItemID)
	}
	if !i.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s for item %s", ErrInvalidTransition, i.Status, next, i.ItemID)
	}
	i.Status = next
	i.ReviewedBy = &reviewer
	i.ReviewedAt = &at
	if notes != nil {
		i.ReviewNotes = notes
	}
	i.Touch(reviewer, at)
	return nil
}

// MarkImported records a successful ledger commit. The item must be approved
// and the splits must cover the amount exactly.
func (i *QueuedImportItem) MarkImported(splits []CategorySplit, ledgerRef, reviewer string, at time.Time) error {
	if !i.Status.CanTransitionTo(QueueImported) {
		return fmt.Errorf("%w: %s -> %s for item %s", ErrInvalidTransition, i.Status, QueueImported, i.ItemID)
	}
	if err := ValidateSplits(i.Transaction.Amount, splits); err != nil {
		return err
	}
	i.Status = QueueImported
	i.LedgerRef = &ledgerRef
	i.ReviewedBy = &reviewer
	i.ReviewedAt = &at
	i.Touch(reviewer, at)
	return nil
}

// BatchStatus is the derived status of an import batch.
type BatchStatus string

const (
	BatchApproved          BatchStatus = "approved"
	BatchPartiallyApproved BatchStatus = "partially_approved"
	BatchReviewing         BatchStatus = "reviewing"
	BatchPending           BatchStatus = "pending"
)

// AggregateStatus derives a batch status from its members. Imported members
// count as approved since they passed approval. It is never stored.
func AggregateStatus(statuses []QueueStatus) BatchStatus {
	if len(statuses) == 0 {
		return BatchPending
	}
	approved, reviewing := 0, 0
	for _, s := range statuses {
		switch s {
		case QueueApproved, QueueImported:
			approved++
		case QueueReviewing:
			reviewing++
		}
	}
	switch {
	case approved == len(statuses):
		return BatchApproved
	case approved > 0:
		return BatchPartiallyApproved
	case reviewing > 0:
		return BatchReviewing
	default:
		return BatchPending
	}
}

// ImportBatch is a read-time view over the queue items sharing a batch ID.
type ImportBatch struct {
	BatchID      string              `json:"batchID"`
	AccountID    string              `json:"accountID"`
	SetupID      *string             `json:"setupID,omitempty"`
	Status       BatchStatus         `json:"status"`
	StatusCounts map[QueueStatus]int `json:"statusCounts"`
	ItemCount    int                 `json:"itemCount"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// QueueFilter narrows a queue listing. Empty fields match everything.
type QueueFilter struct {
	AccountID string
	BatchID   string
	SetupID   string
	Statuses  []QueueStatus
}

// BlockingQueueStatuses are the states that stop a re-enqueue of the same
// hash. A rejected item keeps blocking so redelivery cannot undo the review;
// imported items are caught by the committed-hash tier instead.
var BlockingQueueStatuses = []QueueStatus{QueuePending, QueueReviewing, QueueApproved, QueueRejected}
