package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
)

// MinOrphanGrace keeps the sweep away from commits that are still in flight.
const MinOrphanGrace = time.Minute

type maintenanceService struct {
	BaseService
	committed portsrepo.CommittedHashRepository
}

// MaintenanceServiceOption is a function that configures a maintenanceService
type MaintenanceServiceOption func(*maintenanceService)

// WithMaintenanceClock pins the service clock.
func WithMaintenanceClock(now func() time.Time) MaintenanceServiceOption {
	return func(s *maintenanceService) { s.Now = now }
}

// NewMaintenanceService creates the housekeeping service.
func NewMaintenanceService(committed portsrepo.CommittedHashRepository, options ...MaintenanceServiceOption) portssvc.MaintenanceSvc {
	svc := &maintenanceService{committed: committed}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.MaintenanceSvc = (*maintenanceService)(nil)

func (s *maintenanceService) SweepOrphans(ctx context.Context, grace time.Duration) (int64, error) {
	if grace < MinOrphanGrace {
		return 0, fmt.Errorf("%w: grace must be at least %s", apperrors.ErrValidation, MinOrphanGrace)
	}
	cutoff := s.CurrentTime().Add(-grace)
	deleted, err := s.committed.SweepOrphans(ctx, cutoff)
	if err != nil {
		s.LogError(ctx, err, "Orphan sweep failed")
		return 0, fmt.Errorf("failed to sweep orphaned hash claims: %w", err)
	}
	s.LogInfo(ctx, "Orphan sweep finished", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	return deleted, nil
}
