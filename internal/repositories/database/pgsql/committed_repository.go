package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	"github.com/SscSPs/txn_ingest/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCommittedRepository struct {
	BaseRepository
}

// newPgxCommittedRepository creates a new repository for the committed-hash index.
func newPgxCommittedRepository(pool *pgxpool.Pool) portsrepo.CommittedHashRepository {
	return &PgxCommittedRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CommittedHashRepository = (*PgxCommittedRepository)(nil)

func (r *PgxCommittedRepository) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(hashes) == 0 {
		return found, nil
	}
	query := `
		SELECT DISTINCT hash FROM committed_transactions
		WHERE account_id = $1 AND hash = ANY($2);`
	rows, err := r.Pool.Query(ctx, query, accountID, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to query committed hashes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan committed hash: %w", err)
		}
		found[h] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating committed hashes: %w", err)
	}
	return found, nil
}

// Claim inserts the hash row. A non-forced claim is refused when any row for
// the hash exists; the partial unique index catches concurrent claims.
func (r *PgxCommittedRepository) Claim(ctx context.Context, c domain.CommittedTransaction) error {
	m := mapping.ToModelCommitted(c)
	query := `
		INSERT INTO committed_transactions (committed_id, account_id, hash, txn_date, description, amount, direction,
			forced, ledger_ref, committed_at, committed_by)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10
		WHERE $8::boolean OR NOT EXISTS (
			SELECT 1 FROM committed_transactions WHERE account_id = $2 AND hash = $3
		);`
	tag, err := r.Pool.Exec(ctx, query,
		m.CommittedID,
		m.AccountID,
		m.Hash,
		m.TxnDate,
		m.Description,
		m.Amount,
		m.Direction,
		m.Forced,
		m.CommittedAt,
		m.CommittedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: hash %s already claimed", apperrors.ErrDuplicate, m.Hash)
		}
		return fmt.Errorf("failed to claim hash %s: %w", m.Hash, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: hash %s already claimed", apperrors.ErrDuplicate, m.Hash)
	}
	return nil
}

func (r *PgxCommittedRepository) LinkLedger(ctx context.Context, committedID, ledgerRef string) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE committed_transactions SET ledger_ref = $2 WHERE committed_id = $1;`, committedID, ledgerRef)
	if err != nil {
		return fmt.Errorf("failed to link ledger entry to claim %s: %w", committedID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxCommittedRepository) Release(ctx context.Context, committedID string) error {
	_, err := r.Pool.Exec(ctx, `DELETE FROM committed_transactions WHERE committed_id = $1 AND ledger_ref IS NULL;`, committedID)
	if err != nil {
		return fmt.Errorf("failed to release claim %s: %w", committedID, err)
	}
	return nil
}

// SweepOrphans first relinks claims whose journal was written but whose link
// update was lost, then deletes the remaining unlinked claims older than olderThan.
func (r *PgxCommittedRepository) SweepOrphans(ctx context.Context, olderThan time.Time) (int64, error) {
	relink := `
		UPDATE committed_transactions c
		SET ledger_ref = j.journal_id
		FROM ledger_journals j
		WHERE j.committed_id = c.committed_id AND c.ledger_ref IS NULL;`
	sweep := `
		DELETE FROM committed_transactions c
		WHERE c.ledger_ref IS NULL
		  AND c.committed_at < $1
		  AND NOT EXISTS (SELECT 1 FROM ledger_journals j WHERE j.committed_id = c.committed_id);`

	var deleted int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, relink); err != nil {
			return fmt.Errorf("failed to relink ledger entries: %w", err)
		}
		tag, err := tx.Exec(ctx, sweep, olderThan)
		if err != nil {
			return fmt.Errorf("failed to delete orphaned claims: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
