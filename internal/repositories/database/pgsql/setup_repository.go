package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	"github.com/SscSPs/txn_ingest/internal/models"
	"github.com/SscSPs/txn_ingest/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxSetupRepository struct {
	BaseRepository
}

// newPgxSetupRepository creates a new repository for automatic import setups.
func newPgxSetupRepository(pool *pgxpool.Pool) portsrepo.SetupRepositoryFacade {
	return &PgxSetupRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SetupRepositoryFacade = (*PgxSetupRepository)(nil)

const setupColumns = `setup_id, user_id, account_id, kind, display_name, external_ref, webhook_token_hash,
	sync_cursor, last_synced_at, is_active, created_at, created_by, last_updated_at, last_updated_by`

func scanSetup(row pgx.Row) (domain.ImportSetup, error) {
	var m models.ImportSetup
	err := row.Scan(
		&m.SetupID,
		&m.UserID,
		&m.AccountID,
		&m.Kind,
		&m.DisplayName,
		&m.ExternalRef,
		&m.WebhookTokenHash,
		&m.SyncCursor,
		&m.LastSyncedAt,
		&m.IsActive,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.ImportSetup{}, err
	}
	return mapping.ToDomainSetup(m), nil
}

func (r *PgxSetupRepository) CreateSetup(ctx context.Context, setup domain.ImportSetup) error {
	m := mapping.ToModelSetup(setup)
	query := `INSERT INTO import_setups (` + setupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`
	_, err := r.Pool.Exec(ctx, query,
		m.SetupID,
		m.UserID,
		m.AccountID,
		m.Kind,
		m.DisplayName,
		m.ExternalRef,
		m.WebhookTokenHash,
		m.SyncCursor,
		m.LastSyncedAt,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: setup for %s %s already exists", apperrors.ErrDuplicate, m.Kind, m.ExternalRef)
		}
		return fmt.Errorf("failed to save import setup %s: %w", m.SetupID, err)
	}
	return nil
}

func (r *PgxSetupRepository) FindSetupByID(ctx context.Context, setupID string) (*domain.ImportSetup, error) {
	query := `SELECT ` + setupColumns + ` FROM import_setups WHERE setup_id = $1;`
	setup, err := scanSetup(r.Pool.QueryRow(ctx, query, setupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find import setup %s: %w", setupID, err)
	}
	return &setup, nil
}

func (r *PgxSetupRepository) listWhere(ctx context.Context, where string, arg interface{}) ([]domain.ImportSetup, error) {
	query := `SELECT ` + setupColumns + ` FROM import_setups WHERE ` + where + ` ORDER BY created_at;`
	rows, err := r.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query import setups: %w", err)
	}
	defer rows.Close()
	setups := []domain.ImportSetup{}
	for rows.Next() {
		s, err := scanSetup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import setup row: %w", err)
		}
		setups = append(setups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import setup rows: %w", err)
	}
	return setups, nil
}

func (r *PgxSetupRepository) ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error) {
	return r.listWhere(ctx, "user_id = $1", userID)
}

func (r *PgxSetupRepository) ListActiveSetups(ctx context.Context, kind domain.SourceKind) ([]domain.ImportSetup, error) {
	return r.listWhere(ctx, "is_active AND kind = $1", string(kind))
}

// HasAccountAccess counts inactive setups too; their queued items stay reviewable.
func (r *PgxSetupRepository) HasAccountAccess(ctx context.Context, userID, accountID string) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM import_setups WHERE user_id = $1 AND account_id = $2);`
	if err := r.Pool.QueryRow(ctx, query, userID, accountID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check account access: %w", err)
	}
	return ok, nil
}

func (r *PgxSetupRepository) UpdateSyncCursor(ctx context.Context, setupID string, cursor *string, syncedAt time.Time) error {
	query := `
		UPDATE import_setups
		SET sync_cursor = $2, last_synced_at = $3, last_updated_at = $3, last_updated_by = 'system'
		WHERE setup_id = $1;`
	tag, err := r.Pool.Exec(ctx, query, setupID, cursor, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor for setup %s: %w", setupID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
