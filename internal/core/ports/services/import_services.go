package services

import (
	"context"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
)

// ImportSvc drives the manual import flow: analyze, preview, commit.
type ImportSvc interface {
	// AnalyzeTabular infers or recalls the column mapping of a delimited file.
	AnalyzeTabular(ctx context.Context, userID, accountID string, data []byte) (*dto.AnalyzeResponse, error)

	// PreviewTabular maps a delimited file to deduplicated transactions. A
	// non-nil mapping overrides inference; saveTemplate remembers the mapping
	// used under the file's fingerprint.
	PreviewTabular(ctx context.Context, userID, accountID string, data []byte, mapping *domain.ColumnMapping, saveTemplate bool) (*domain.ImportPreview, error)

	// PreviewStatementText runs the statement grammars over already extracted text.
	PreviewStatementText(ctx context.Context, userID, accountID, text string) (*domain.ImportPreview, error)

	// PreviewDocument extracts transactions from a PDF, image or delimited upload.
	PreviewDocument(ctx context.Context, userID, accountID string, doc domain.Document) (*domain.ImportPreview, error)

	// Commit writes the selected transactions to the ledger.
	Commit(ctx context.Context, req domain.CommitRequest) (*domain.CommitResult, error)
}

// QueueReaderSvc defines read operations on the review queue.
type QueueReaderSvc interface {
	ListItems(ctx context.Context, userID string, params dto.ListQueueItemsParams) (*dto.ListQueueItemsResponse, error)
	ListBatches(ctx context.Context, userID, accountID string) ([]domain.ImportBatch, error)
}

// QueueWriterSvc defines the review workflow.
type QueueWriterSvc interface {
	// Enqueue classifies txns against all dedup tiers and queues the unique ones under a new batch.
	Enqueue(ctx context.Context, accountID string, setupID *string, txns []domain.CanonicalTransaction, actor string) (*domain.EnqueueResult, error)

	// Transition moves one item through the review state machine.
	Transition(ctx context.Context, itemID string, next domain.QueueStatus, reviewerID string, notes *string) (*domain.QueuedImportItem, error)

	// ApproveAndCommit approves each item if needed and commits it with its splits.
	ApproveAndCommit(ctx context.Context, reviewerID string, approvals []domain.ItemApproval) (*domain.CommitResult, error)
}

// QueueSvcFacade combines queue reads and writes.
type QueueSvcFacade interface {
	QueueReaderSvc
	QueueWriterSvc
}

// TemplateSvc manages remembered column mappings.
type TemplateSvc interface {
	// Resolve returns the saved template for the analysis fingerprint when its
	// date format still parses the sample confidently, or nil.
	Resolve(ctx context.Context, userID, accountID string, analysis columns.Analysis, rows []domain.RawRow) (*domain.ImportTemplate, error)
	Save(ctx context.Context, userID, accountID, fingerprint, name string, mapping domain.ColumnMapping) (*domain.ImportTemplate, error)
	MarkUsed(ctx context.Context, templateID string) error
	List(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error)
	Delete(ctx context.Context, userID, templateID string) error
}

// SetupSvc manages automatic import sources.
type SetupSvc interface {
	// CreateSetup registers a source and returns the plaintext webhook token once.
	CreateSetup(ctx context.Context, userID string, req dto.CreateSetupRequest) (*domain.ImportSetup, string, error)
	GetSetup(ctx context.Context, userID, setupID string) (*domain.ImportSetup, error)
	ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error)
	// VerifyWebhook checks token against the stored hash of an active setup.
	VerifyWebhook(ctx context.Context, setupID, token string) (*domain.ImportSetup, error)
}

// BankSyncSvc pulls or receives bank aggregator transactions into the queue.
type BankSyncSvc interface {
	SyncSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error)
	HandleWebhook(ctx context.Context, setup domain.ImportSetup, payload dto.BankWebhookPayload) (*domain.EnqueueResult, error)
}

// EmailIngestSvc polls a mailbox for statement attachments.
type EmailIngestSvc interface {
	PollSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error)
}

// MaintenanceSvc runs housekeeping jobs.
type MaintenanceSvc interface {
	// SweepOrphans removes committed-hash claims left without a ledger link for longer than grace.
	SweepOrphans(ctx context.Context, grace time.Duration) (int64, error)
}
