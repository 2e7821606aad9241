package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSweepOrphans(t *testing.T) {
	ctx := context.Background()
	committed := new(MockCommittedRepository)
	svc := services.NewMaintenanceService(committed, services.WithMaintenanceClock(clock))
	committed.On("SweepOrphans", ctx, fixedNow.Add(-time.Hour)).Return(int64(3), nil).Once()

	deleted, err := svc.SweepOrphans(ctx, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	committed.AssertExpectations(t)
}

func TestSweepOrphans_GraceTooShort(t *testing.T) {
	committed := new(MockCommittedRepository)
	svc := services.NewMaintenanceService(committed)

	_, err := svc.SweepOrphans(context.Background(), time.Second)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	committed.AssertNotCalled(t, "SweepOrphans", mock.Anything, mock.Anything)
}

func TestSweepOrphans_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	committed := new(MockCommittedRepository)
	svc := services.NewMaintenanceService(committed, services.WithMaintenanceClock(clock))
	committed.On("SweepOrphans", ctx, mock.Anything).Return(int64(0), assert.AnError).Once()

	_, err := svc.SweepOrphans(ctx, services.MinOrphanGrace)

	assert.ErrorIs(t, err, assert.AnError)
}
