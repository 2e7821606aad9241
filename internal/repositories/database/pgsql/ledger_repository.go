package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	"github.com/SscSPs/txn_ingest/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for committed ledger journals.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepository = (*PgxLedgerRepository)(nil)

// CommitEntry saves the journal and one line per category split within a
// single DB transaction. The journal carries the committed ID so the orphan
// sweep can relink it if the caller loses the returned reference.
func (r *PgxLedgerRepository) CommitEntry(ctx context.Context, entry domain.LedgerEntry, at time.Time) (string, error) {
	journalID := uuid.NewString()
	lineIDs := make([]string, len(entry.Splits))
	for i := range lineIDs {
		lineIDs[i] = uuid.NewString()
	}
	journal, lines := mapping.ToModelLedger(entry, journalID, lineIDs, at)

	tx, err := r.Begin(ctx)
	if err != nil {
		return "", err
	}
	// Will be ignored if transaction is committed successfully
	defer r.Rollback(ctx, tx)

	journalQuery := `
		INSERT INTO ledger_journals (
			journal_id, committed_id, account_id, journal_date, description, merchant, amount, direction,
			source, source_ref, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`
	_, err = tx.Exec(ctx, journalQuery,
		journal.JournalID,
		journal.CommittedID,
		journal.AccountID,
		journal.JournalDate,
		journal.Description,
		journal.Merchant,
		journal.Amount,
		journal.Direction,
		journal.Source,
		journal.SourceRef,
		journal.CreatedAt,
		journal.CreatedBy,
		journal.LastUpdatedAt,
		journal.LastUpdatedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert ledger journal %s: %w", journalID, err)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO ledger_journal_lines (line_id, journal_id, category, amount, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	for _, l := range lines {
		batch.Queue(lineQuery,
			l.LineID,
			l.JournalID,
			l.Category,
			l.Amount,
			l.CreatedAt,
			l.CreatedBy,
			l.LastUpdatedAt,
			l.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	// Close the batch results to surface errors from each insert
	if err := br.Close(); err != nil {
		return "", fmt.Errorf("failed to insert lines for ledger journal %s: %w", journalID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return "", err
	}
	return journalID, nil
}
