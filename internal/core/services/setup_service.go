package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/utils"
	"github.com/google/uuid"
)

const webhookTokenBytes = 32

type setupService struct {
	BaseService
	repo portsrepo.SetupRepositoryFacade
}

// NewSetupService creates the import setup service.
func NewSetupService(repo portsrepo.SetupRepositoryFacade) portssvc.SetupSvc {
	return &setupService{repo: repo}
}

var _ portssvc.SetupSvc = (*setupService)(nil)

func (s *setupService) CreateSetup(ctx context.Context, userID string, req dto.CreateSetupRequest) (*domain.ImportSetup, string, error) {
	kind := domain.SourceKind(req.Kind)
	if !kind.IsValid() {
		return nil, "", fmt.Errorf("%w: unknown source kind %q", apperrors.ErrValidation, req.Kind)
	}
	token, err := utils.GenerateSecret(webhookTokenBytes)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate webhook token: %w", err)
	}
	hash, err := utils.HashSecret(token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash webhook token: %w", err)
	}

	now := s.CurrentTime()
	setup := domain.ImportSetup{
		SetupID:          uuid.NewString(),
		UserID:           userID,
		AccountID:        req.AccountID,
		Kind:             kind,
		DisplayName:      req.DisplayName,
		ExternalRef:      req.ExternalRef,
		WebhookTokenHash: hash,
		IsActive:         true,
		AuditFields: domain.NewAuditFields(userID, now),
	}
	if err := s.repo.CreateSetup(ctx, setup); err != nil {
		s.LogError(ctx, err, "Failed to create import setup", slog.String("account_id", req.AccountID))
		return nil, "", fmt.Errorf("failed to create import setup: %w", err)
	}
	s.LogInfo(ctx, "Import setup created", slog.String("setup_id", setup.SetupID), slog.String("kind", string(kind)))
	return &setup, token, nil
}

func (s *setupService) GetSetup(ctx context.Context, userID, setupID string) (*domain.ImportSetup, error) {
	setup, err := s.repo.FindSetupByID(ctx, setupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find import setup: %w", err)
	}
	if setup.UserID != userID {
		return nil, fmt.Errorf("%w: setup %s belongs to another user", apperrors.ErrForbidden, setupID)
	}
	return setup, nil
}

func (s *setupService) ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error) {
	setups, err := s.repo.ListSetups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import setups: %w", err)
	}
	if setups == nil {
		return []domain.ImportSetup{}, nil
	}
	return setups, nil
}

// VerifyWebhook answers ErrNotFound for unknown, inactive or wrong-token
// setups alike so callers cannot enumerate setup IDs.
func (s *setupService) VerifyWebhook(ctx context.Context, setupID, token string) (*domain.ImportSetup, error) {
	setup, err := s.repo.FindSetupByID(ctx, setupID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find import setup: %w", err)
	}
	if !setup.IsActive || token == "" || !utils.CheckSecretHash(token, setup.WebhookTokenHash) {
		s.LogWarn(ctx, "Webhook verification failed", slog.String("setup_id", setupID))
		return nil, apperrors.ErrNotFound
	}
	return setup, nil
}
