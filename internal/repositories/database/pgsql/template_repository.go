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

type PgxTemplateRepository struct {
	BaseRepository
}

// newPgxTemplateRepository creates a new repository for import templates.
func newPgxTemplateRepository(pool *pgxpool.Pool) portsrepo.TemplateRepositoryFacade {
	return &PgxTemplateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TemplateRepositoryFacade = (*PgxTemplateRepository)(nil)

const templateColumns = `template_id, user_id, account_id, fingerprint, name, mapping, usage_count, last_used_at,
	created_at, created_by, last_updated_at, last_updated_by`

func scanTemplate(row pgx.Row) (*domain.ImportTemplate, error) {
	var m models.ImportTemplate
	err := row.Scan(
		&m.TemplateID,
		&m.UserID,
		&m.AccountID,
		&m.Fingerprint,
		&m.Name,
		&m.Mapping,
		&m.UsageCount,
		&m.LastUsedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	tpl, err := mapping.ToDomainTemplate(m)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *PgxTemplateRepository) FindTemplateByFingerprint(ctx context.Context, userID, accountID, fingerprint string) (*domain.ImportTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM import_templates
		WHERE user_id = $1 AND account_id = $2 AND fingerprint = $3;`
	tpl, err := scanTemplate(r.Pool.QueryRow(ctx, query, userID, accountID, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find template by fingerprint: %w", err)
	}
	return tpl, nil
}

func (r *PgxTemplateRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.ImportTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM import_templates WHERE template_id = $1;`
	tpl, err := scanTemplate(r.Pool.QueryRow(ctx, query, templateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find template %s: %w", templateID, err)
	}
	return tpl, nil
}

func (r *PgxTemplateRepository) ListTemplates(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM import_templates
		WHERE user_id = $1 AND ($2 = '' OR account_id = $2)
		ORDER BY last_used_at DESC NULLS LAST, created_at DESC;`
	rows, err := r.Pool.Query(ctx, query, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := []domain.ImportTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		templates = append(templates, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}
	return templates, nil
}

// UpsertTemplate keeps the original template ID and creation audit when the
// fingerprint is saved again, replacing only the mapping and name.
func (r *PgxTemplateRepository) UpsertTemplate(ctx context.Context, tpl domain.ImportTemplate) (*domain.ImportTemplate, error) {
	m, err := mapping.ToModelTemplate(tpl)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO import_templates (template_id, user_id, account_id, fingerprint, name, mapping, usage_count, last_used_at,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, 0, NULL, $7, $8, $9, $10)
		ON CONFLICT (user_id, account_id, fingerprint) DO UPDATE SET
			name = EXCLUDED.name,
			mapping = EXCLUDED.mapping,
			last_updated_at = EXCLUDED.last_updated_at,
			last_updated_by = EXCLUDED.last_updated_by
		RETURNING ` + templateColumns + `;`
	saved, err := scanTemplate(r.Pool.QueryRow(ctx, query,
		m.TemplateID,
		m.UserID,
		m.AccountID,
		m.Fingerprint,
		m.Name,
		m.Mapping,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert template for fingerprint %s: %w", m.Fingerprint, err)
	}
	return saved, nil
}

func (r *PgxTemplateRepository) TouchTemplate(ctx context.Context, templateID string, usedAt time.Time) error {
	query := `
		UPDATE import_templates
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE template_id = $1;`
	tag, err := r.Pool.Exec(ctx, query, templateID, usedAt)
	if err != nil {
		return fmt.Errorf("failed to touch template %s: %w", templateID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxTemplateRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM import_templates WHERE template_id = $1;`, templateID)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", templateID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
