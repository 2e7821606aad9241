package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	"github.com/SscSPs/txn_ingest/internal/models"
	"github.com/SscSPs/txn_ingest/internal/utils/mapping"
	"github.com/SscSPs/txn_ingest/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxQueueRepository struct {
	BaseRepository
}

// newPgxQueueRepository creates a new repository for the review queue.
func newPgxQueueRepository(pool *pgxpool.Pool) portsrepo.QueueRepositoryFacade {
	return &PgxQueueRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.QueueRepositoryFacade = (*PgxQueueRepository)(nil)

const queueColumns = `item_id, batch_id, setup_id, account_id, hash, txn_date, amount, source, payload, status,
	reviewed_by, reviewed_at, review_notes, ledger_ref, created_at, created_by, last_updated_at, last_updated_by`

func blockingStatuses() []string {
	out := make([]string, len(domain.BlockingQueueStatuses))
	for i, s := range domain.BlockingQueueStatuses {
		out[i] = string(s)
	}
	return out
}

func scanQueueItem(row pgx.Row) (models.QueueItem, error) {
	var m models.QueueItem
	err := row.Scan(
		&m.ItemID,
		&m.BatchID,
		&m.SetupID,
		&m.AccountID,
		&m.Hash,
		&m.TxnDate,
		&m.Amount,
		&m.Source,
		&m.Payload,
		&m.Status,
		&m.ReviewedBy,
		&m.ReviewedAt,
		&m.ReviewNotes,
		&m.LedgerRef,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func collectQueueItems(rows pgx.Rows) ([]models.QueueItem, error) {
	defer rows.Close()
	var out []models.QueueItem
	for rows.Next() {
		m, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue item rows: %w", err)
	}
	return out, nil
}

func toDomainQueueItems(ms []models.QueueItem) ([]domain.QueuedImportItem, error) {
	items := make([]domain.QueuedImportItem, 0, len(ms))
	for _, m := range ms {
		it, err := mapping.ToDomainQueueItem(m)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *PgxQueueRepository) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(hashes) == 0 {
		return found, nil
	}
	query := `
		SELECT DISTINCT hash FROM import_queue_items
		WHERE account_id = $1 AND hash = ANY($2) AND status = ANY($3);`
	rows, err := r.Pool.Query(ctx, query, accountID, hashes, blockingStatuses())
	if err != nil {
		return nil, fmt.Errorf("failed to query queued hashes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan queued hash: %w", err)
		}
		found[h] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queued hashes: %w", err)
	}
	return found, nil
}

func (r *PgxQueueRepository) FindItemByID(ctx context.Context, itemID string) (*domain.QueuedImportItem, error) {
	query := `SELECT ` + queueColumns + ` FROM import_queue_items WHERE item_id = $1;`
	m, err := scanQueueItem(r.Pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find queue item %s: %w", itemID, err)
	}
	item, err := mapping.ToDomainQueueItem(m)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PgxQueueRepository) FindItemsByIDs(ctx context.Context, itemIDs []string) ([]domain.QueuedImportItem, error) {
	if len(itemIDs) == 0 {
		return []domain.QueuedImportItem{}, nil
	}
	query := `SELECT ` + queueColumns + ` FROM import_queue_items WHERE item_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	ms, err := collectQueueItems(rows)
	if err != nil {
		return nil, err
	}
	return toDomainQueueItems(ms)
}

// ListItems pages newest first using a (created_at, item_id) keyset cursor.
func (r *PgxQueueRepository) ListItems(ctx context.Context, filter domain.QueueFilter, limit int, nextToken *string) ([]domain.QueuedImportItem, *string, error) {
	if limit <= 0 {
		limit = 50
	}
	fetchLimit := limit + 1

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	add("account_id = ?", filter.AccountID)
	if filter.BatchID != "" {
		add("batch_id = ?", filter.BatchID)
	}
	if filter.SetupID != "" {
		add("setup_id = ?", filter.SetupID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY(?)", statuses)
	}
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, decodeErr)
		}
		args = append(args, lastCreatedAt, lastID)
		conds = append(conds, fmt.Sprintf("(created_at, item_id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, fetchLimit)
	query := `SELECT ` + queueColumns + ` FROM import_queue_items WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, item_id DESC LIMIT $` + strconv.Itoa(len(args)) + `;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query queue items for account %s: %w", filter.AccountID, err)
	}
	ms, err := collectQueueItems(rows)
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	if len(ms) > limit {
		last := ms[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.ItemID)
		nextTokenVal = &token
		ms = ms[:limit]
	}
	items, err := toDomainQueueItems(ms)
	if err != nil {
		return nil, nil, err
	}
	return items, nextTokenVal, nil
}

func (r *PgxQueueRepository) ListBatches(ctx context.Context, accountID string) ([]domain.ImportBatch, error) {
	query := `
		SELECT batch_id, account_id, setup_id, status, COUNT(*), MIN(created_at)
		FROM import_queue_items
		WHERE account_id = $1
		GROUP BY batch_id, account_id, setup_id, status
		ORDER BY MIN(MIN(created_at)) OVER (PARTITION BY batch_id) DESC, batch_id, status;`
	rows, err := r.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import batches: %w", err)
	}
	defer rows.Close()

	var counts []models.BatchStatusCount
	for rows.Next() {
		var c models.BatchStatusCount
		if err := rows.Scan(&c.BatchID, &c.AccountID, &c.SetupID, &c.Status, &c.Count, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch rows: %w", err)
	}
	return mapping.ToDomainBatches(counts), nil
}

// InsertItems relies on the open-hash unique index; rows already queued are
// skipped and not counted.
func (r *PgxQueueRepository) InsertItems(ctx context.Context, items []domain.QueuedImportItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO import_queue_items (` + queueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT DO NOTHING;`
	batch := &pgx.Batch{}
	for _, it := range items {
		m, err := mapping.ToModelQueueItem(it)
		if err != nil {
			return 0, err
		}
		batch.Queue(query,
			m.ItemID,
			m.BatchID,
			m.SetupID,
			m.AccountID,
			m.Hash,
			m.TxnDate,
			m.Amount,
			m.Source,
			m.Payload,
			m.Status,
			m.ReviewedBy,
			m.ReviewedAt,
			m.ReviewNotes,
			m.LedgerRef,
			m.CreatedAt,
			m.CreatedBy,
			m.LastUpdatedAt,
			m.LastUpdatedBy,
		)
	}

	inserted := 0
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for range items {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("failed to insert queue item: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to execute queue insert batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PgxQueueRepository) UpdateItemReview(ctx context.Context, item domain.QueuedImportItem, from domain.QueueStatus) error {
	query := `
		UPDATE import_queue_items
		SET status = $3, reviewed_by = $4, reviewed_at = $5, review_notes = $6, ledger_ref = $7,
			last_updated_at = $8, last_updated_by = $9
		WHERE item_id = $1 AND status = $2;`
	tag, err := r.Pool.Exec(ctx, query,
		item.ItemID,
		string(from),
		string(item.Status),
		item.ReviewedBy,
		item.ReviewedAt,
		item.ReviewNotes,
		item.LedgerRef,
		item.LastUpdatedAt,
		item.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item %s: %w", item.ItemID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM import_queue_items WHERE item_id = $1);`, item.ItemID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check queue item %s: %w", item.ItemID, err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%w: queue item %s is no longer %s", apperrors.ErrConflict, item.ItemID, from)
}
