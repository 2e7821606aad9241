package services

import (
	"context"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
)

// LedgerCommitter posts a committed transaction to the ledger and returns the journal reference.
type LedgerCommitter interface {
	CommitEntry(ctx context.Context, entry domain.LedgerEntry, at time.Time) (string, error)
}

// TextExtractor turns a document (PDF, scanned statement) into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc domain.Document) (string, error)
}

// VisionExtractor reads a transaction table out of an image.
type VisionExtractor interface {
	ExtractRows(ctx context.Context, doc domain.Document) ([][]string, error)
}

// Categorizer suggests a category for a transaction.
type Categorizer interface {
	Suggest(ctx context.Context, txn domain.CanonicalTransaction) (string, error)
}

// BankFeedClient reads incremental pages from a bank aggregator.
type BankFeedClient interface {
	FetchTransactions(ctx context.Context, externalRef string, cursor *string) (*domain.BankFeedPage, error)
}

// Mailbox lists messages and downloads their attachments.
type Mailbox interface {
	ListMessages(ctx context.Context, query string) ([]domain.MailMessage, error)
	FetchAttachments(ctx context.Context, messageID string) ([]domain.Document, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// DocumentArchive stores raw uploads for audit.
type DocumentArchive interface {
	Archive(ctx context.Context, accountID string, doc domain.Document) (string, error)
}
