package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/SscSPs/txn_ingest/internal/ingest/rowmap"
	"github.com/google/uuid"
)

// DefaultTemplateMinConfidence is the mean date confidence below which a saved template is ignored.
const DefaultTemplateMinConfidence = 0.8

type templateService struct {
	BaseService
	repo          portsrepo.TemplateRepositoryFacade
	minConfidence float64
}

// TemplateServiceOption is a function that configures a templateService
type TemplateServiceOption func(*templateService)

// WithTemplateMinConfidence overrides DefaultTemplateMinConfidence.
func WithTemplateMinConfidence(c float64) TemplateServiceOption {
	return func(s *templateService) {
		s.minConfidence = c
	}
}

// WithTemplateClock pins the service clock.
func WithTemplateClock(now func() time.Time) TemplateServiceOption {
	return func(s *templateService) {
		s.Now = now
	}
}

// NewTemplateService creates the template store service.
func NewTemplateService(repo portsrepo.TemplateRepositoryFacade, options ...TemplateServiceOption) portssvc.TemplateSvc {
	svc := &templateService{repo: repo, minConfidence: DefaultTemplateMinConfidence}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.TemplateSvc = (*templateService)(nil)

func (s *templateService) Resolve(ctx context.Context, userID, accountID string, analysis columns.Analysis, rows []domain.RawRow) (*domain.ImportTemplate, error) {
	tpl, err := s.repo.FindTemplateByFingerprint(ctx, userID, accountID, analysis.Fingerprint)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up template: %w", err)
	}
	logger := s.GetLogger(ctx).With(slog.String("template_id", tpl.TemplateID))

	if !tpl.Mapping.Recognized() || tpl.Mapping.MaxColumn() >= analysis.ColumnCount {
		logger.Warn("Saved template does not fit file, re-analyzing")
		return nil, nil
	}
	conf := rowmap.DateConfidence(rows, tpl.Mapping, columns.SampleSize)
	if conf < s.minConfidence {
		logger.Warn("Saved template date format no longer fits, re-analyzing",
			slog.String("date_format", tpl.Mapping.DateFormat),
			slog.Float64("confidence", conf))
		return nil, nil
	}
	return tpl, nil
}

func (s *templateService) Save(ctx context.Context, userID, accountID, fingerprint, name string, mapping domain.ColumnMapping) (*domain.ImportTemplate, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", apperrors.ErrValidation)
	}
	if name == "" {
		name = "Import " + fingerprint[:min(8, len(fingerprint))]
	}
	now := s.CurrentTime()
	tpl := domain.ImportTemplate{
		TemplateID:  uuid.NewString(),
		UserID:      userID,
		AccountID:   accountID,
		Fingerprint: fingerprint,
		Name:        name,
		Mapping:     mapping,
		AuditFields: domain.NewAuditFields(userID, now),
	}
	saved, err := s.repo.UpsertTemplate(ctx, tpl)
	if err != nil {
		s.LogError(ctx, err, "Failed to save template", slog.String("fingerprint", fingerprint))
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	s.LogInfo(ctx, "Template saved", slog.String("template_id", saved.TemplateID), slog.String("fingerprint", fingerprint))
	return saved, nil
}

func (s *templateService) MarkUsed(ctx context.Context, templateID string) error {
	if err := s.repo.TouchTemplate(ctx, templateID, s.CurrentTime()); err != nil {
		return fmt.Errorf("failed to record template use: %w", err)
	}
	return nil
}

func (s *templateService) List(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if templates == nil {
		return []domain.ImportTemplate{}, nil
	}
	return templates, nil
}

func (s *templateService) Delete(ctx context.Context, userID, templateID string) error {
	tpl, err := s.repo.FindTemplateByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("failed to find template: %w", err)
	}
	if tpl.UserID != userID {
		return fmt.Errorf("%w: template %s belongs to another user", apperrors.ErrForbidden, templateID)
	}
	if err := s.repo.DeleteTemplate(ctx, templateID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}
