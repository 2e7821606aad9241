package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
)

// TemplateReader defines read operations for remembered column mappings.
type TemplateReader interface {
	// FindTemplateByFingerprint returns apperrors.ErrNotFound when no template matches.
	FindTemplateByFingerprint(ctx context.Context, userID, accountID, fingerprint string) (*domain.ImportTemplate, error)
	FindTemplateByID(ctx context.Context, templateID string) (*domain.ImportTemplate, error)
	ListTemplates(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error)
}

// TemplateWriter defines write operations for remembered column mappings.
type TemplateWriter interface {
	// UpsertTemplate inserts or replaces the mapping for (user, account, fingerprint).
	UpsertTemplate(ctx context.Context, tpl domain.ImportTemplate) (*domain.ImportTemplate, error)
	// TouchTemplate increments the usage count and sets the last used time.
	TouchTemplate(ctx context.Context, templateID string, usedAt time.Time) error
	DeleteTemplate(ctx context.Context, templateID string) error
}

// TemplateRepositoryFacade combines template reads and writes.
type TemplateRepositoryFacade interface {
	TemplateReader
	TemplateWriter
}

// CommittedHashRepository is the committed-transaction index used by the
// database dedup tier and the commit flow.
type CommittedHashRepository interface {
	ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error)
	// Claim inserts the hash row. A non-forced claim on an existing hash
	// returns apperrors.ErrDuplicate.
	Claim(ctx context.Context, c domain.CommittedTransaction) error
	LinkLedger(ctx context.Context, committedID, ledgerRef string) error
	// Release deletes an unlinked claim after a failed ledger commit.
	Release(ctx context.Context, committedID string) error
	// SweepOrphans deletes claims that never got a ledger link and were made before olderThan.
	SweepOrphans(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueueReader defines read operations for the review queue.
type QueueReader interface {
	// ExistingHashes reports hashes held by open (not rejected, not imported) items.
	ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error)
	FindItemByID(ctx context.Context, itemID string) (*domain.QueuedImportItem, error)
	FindItemsByIDs(ctx context.Context, itemIDs []string) ([]domain.QueuedImportItem, error)
	ListItems(ctx context.Context, filter domain.QueueFilter, limit int, nextToken *string) ([]domain.QueuedImportItem, *string, error)
	// ListBatches returns one view per batch with per-status counts; Status is left for the caller to derive.
	ListBatches(ctx context.Context, accountID string) ([]domain.ImportBatch, error)
}

// QueueWriter defines write operations for the review queue.
type QueueWriter interface {
	// InsertItems skips items whose (account, hash) is already queued and
	// returns how many rows were actually inserted.
	InsertItems(ctx context.Context, items []domain.QueuedImportItem) (int, error)
	// UpdateItemReview persists status and review fields only if the stored
	// status still equals from; otherwise it returns apperrors.ErrConflict.
	UpdateItemReview(ctx context.Context, item domain.QueuedImportItem, from domain.QueueStatus) error
}

// QueueRepositoryFacade combines queue reads and writes.
type QueueRepositoryFacade interface {
	QueueReader
	QueueWriter
}

// AccountAccessChecker answers whether a user may review an account's queue.
// Queue items only come from import setups, so a setup on the account grants it.
type AccountAccessChecker interface {
	HasAccountAccess(ctx context.Context, userID, accountID string) (bool, error)
}

// SetupRepositoryFacade persists automatic import setups.
type SetupRepositoryFacade interface {
	AccountAccessChecker
	CreateSetup(ctx context.Context, setup domain.ImportSetup) error
	FindSetupByID(ctx context.Context, setupID string) (*domain.ImportSetup, error)
	ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error)
	ListActiveSetups(ctx context.Context, kind domain.SourceKind) ([]domain.ImportSetup, error)
	UpdateSyncCursor(ctx context.Context, setupID string, cursor *string, syncedAt time.Time) error
}

// LedgerRepository writes committed transactions into the ledger tables.
type LedgerRepository interface {
	// CommitEntry writes one journal with a line per split and returns the journal ID.
	CommitEntry(ctx context.Context, entry domain.LedgerEntry, at time.Time) (string, error)
}
