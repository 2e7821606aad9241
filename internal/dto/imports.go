package dto

import (
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
)

// AnalyzeResponse describes the inferred or recalled structure of a tabular file.
type AnalyzeResponse struct {
	Analysis   columns.Analysis     `json:"analysis"`
	Mapping    domain.ColumnMapping `json:"mapping"`
	Recognized bool                 `json:"recognized"`
	TemplateID *string              `json:"templateID,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// StatementTextRequest carries text already extracted from a statement.
type StatementTextRequest struct {
	AccountID string `json:"accountID" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// CommitTransactionsRequest commits transactions returned by a preview.
type CommitTransactionsRequest struct {
	AccountID    string                            `json:"accountID" binding:"required"`
	Transactions []domain.CanonicalTransaction     `json:"transactions" binding:"required,min=1"`
	ForceInclude []string                          `json:"forceInclude,omitempty"` // hashes to commit despite a duplicate flag
	Splits       map[string][]domain.CategorySplit `json:"splits" binding:"required"`
}

// ToCommitRequest converts the payload for the import service.
func (r CommitTransactionsRequest) ToCommitRequest(userID string) domain.CommitRequest {
	force := make(map[string]bool, len(r.ForceInclude))
	for _, h := range r.ForceInclude {
		force[h] = true
	}
	return domain.CommitRequest{
		UserID:       userID,
		AccountID:    r.AccountID,
		Transactions: r.Transactions,
		ForceInclude: force,
		Splits:       r.Splits,
	}
}

// ListQueueItemsParams filters and pages the review queue.
type ListQueueItemsParams struct {
	AccountID string   `form:"accountID" binding:"required"`
	BatchID   string   `form:"batchID"`
	SetupID   string   `form:"setupID"`
	Statuses  []string `form:"status"`
	Limit     int      `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
	NextToken *string  `form:"nextToken"`
}

// ListQueueItemsResponse is one page of queue items.
type ListQueueItemsResponse struct {
	Items     []domain.QueuedImportItem `json:"items"`
	NextToken *string                   `json:"nextToken,omitempty"`
}

// TransitionRequest moves one queue item to a new status.
type TransitionRequest struct {
	Status string  `json:"status" binding:"required,oneof=reviewing approved rejected"`
	Notes  *string `json:"notes,omitempty"`
}

// ApproveRequest approves and commits queue items.
type ApproveRequest struct {
	Items []domain.ItemApproval `json:"items" binding:"required,min=1,dive"`
}

// CreateSetupRequest registers an automatic import source.
type CreateSetupRequest struct {
	AccountID   string `json:"accountID" binding:"required"`
	Kind        string `json:"kind" binding:"required,oneof=bank_api email"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=100"`
	ExternalRef string `json:"externalRef" binding:"required"`
}

// CreateSetupResponse returns the setup and its webhook token, shown only once.
type CreateSetupResponse struct {
	Setup        domain.ImportSetup `json:"setup"`
	WebhookToken string             `json:"webhookToken"`
}

// BankWebhookPayload is what the aggregator posts to the webhook endpoint.
// Without transactions it only signals that new data is ready to pull.
type BankWebhookPayload struct {
	Event        string                   `json:"event" binding:"required"`
	Transactions []domain.BankTransaction `json:"transactions,omitempty"`
}

// SweepOrphansResponse reports the orphan sweep outcome.
type SweepOrphansResponse struct {
	Deleted int64 `json:"deleted"`
}
