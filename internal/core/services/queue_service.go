package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/SscSPs/txn_ingest/internal/platform/metrics"
	"github.com/google/uuid"
)

const (
	defaultQueuePageSize = 50
	maxQueuePageSize     = 200
)

type queueService struct {
	BaseService
	queue     portsrepo.QueueRepositoryFacade
	committed portsrepo.CommittedHashRepository
	access    portsrepo.AccountAccessChecker
	writer    ledgerWriter
}

// QueueServiceOption is a function that configures a queueService
type QueueServiceOption func(*queueService)

// WithQueueClock pins the service clock.
func WithQueueClock(now func() time.Time) QueueServiceOption {
	return func(s *queueService) {
		s.Now = now
		s.writer.Now = now
	}
}

// NewQueueService creates the review queue service.
func NewQueueService(queue portsrepo.QueueRepositoryFacade, committed portsrepo.CommittedHashRepository, ledger portssvc.LedgerCommitter, access portsrepo.AccountAccessChecker, options ...QueueServiceOption) portssvc.QueueSvcFacade {
	svc := &queueService{
		queue:     queue,
		committed: committed,
		access:    access,
		writer:    ledgerWriter{committed: committed, ledger: ledger},
	}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.QueueSvcFacade = (*queueService)(nil)

func (s *queueService) Enqueue(ctx context.Context, accountID string, setupID *string, txns []domain.CanonicalTransaction, actor string) (*domain.EnqueueResult, error) {
	batchID := uuid.NewString()
	logger := s.GetLogger(ctx).With(slog.String("account_id", accountID), slog.String("batch_id", batchID))

	summary, err := dedup.Classify(ctx, accountID, txns, s.committed, s.queue)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicates: %w", err)
	}
	metrics.RecordDedup(summary.DuplicateWithinFile, summary.DuplicateDatabase, summary.DuplicatePending)

	now := s.CurrentTime()
	items := make([]domain.QueuedImportItem, 0, summary.Unique)
	for _, txn := range txns {
		if txn.DedupStatus.IsDuplicate() {
			continue
		}
		items = append(items, domain.QueuedImportItem{
			ItemID:      uuid.NewString(),
			BatchID:     batchID,
			SetupID:     setupID,
			AccountID:   accountID,
			Transaction: txn,
			Status:      domain.QueuePending,
			AuditFields: domain.NewAuditFields(actor, now),
		})
	}

	result := &domain.EnqueueResult{BatchID: batchID, Received: len(txns), Dedup: summary}
	if len(items) == 0 {
		logger.Info("Nothing to enqueue", slog.Int("received", len(txns)))
		return result, nil
	}
	inserted, err := s.queue.InsertItems(ctx, items)
	if err != nil {
		s.LogError(ctx, err, "Failed to enqueue items", slog.String("batch_id", batchID))
		return nil, fmt.Errorf("failed to enqueue items: %w", err)
	}
	// A concurrent run can queue the same hash between the check and the insert.
	if raced := len(items) - inserted; raced > 0 {
		result.Dedup.Unique -= raced
		result.Dedup.DuplicatePending += raced
		metrics.Duplicates.WithLabelValues("pending").Add(float64(raced))
	}
	result.Enqueued = inserted
	metrics.Enqueued.WithLabelValues(string(items[0].Transaction.Source)).Add(float64(inserted))
	logger.Info("Items enqueued", slog.Int("received", len(txns)), slog.Int("enqueued", inserted))
	return result, nil
}

func (s *queueService) Transition(ctx context.Context, itemID string, next domain.QueueStatus, reviewerID string, notes *string) (*domain.QueuedImportItem, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, next)
	}
	item, err := s.queue.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to find queue item: %w", err)
	}
	if err := s.authorize(ctx, reviewerID, item.AccountID); err != nil {
		return nil, err
	}
	from := item.Status
	if err := item.Transition(next, reviewerID, s.CurrentTime(), notes); err != nil {
		return nil, err
	}
	if err := s.queue.UpdateItemReview(ctx, *item, from); err != nil {
		return nil, fmt.Errorf("failed to update queue item: %w", err)
	}
	s.LogInfo(ctx, "Queue item transitioned",
		slog.String("item_id", itemID),
		slog.String("from", string(from)),
		slog.String("to", string(next)))
	return item, nil
}

// ApproveAndCommit steps each item up to approved, then commits it. Items are
// independent: one failure does not stop the rest.
func (s *queueService) ApproveAndCommit(ctx context.Context, reviewerID string, approvals []domain.ItemApproval) (*domain.CommitResult, error) {
	if len(approvals) == 0 {
		return nil, fmt.Errorf("%w: no items to approve", apperrors.ErrValidation)
	}
	ids := make([]string, len(approvals))
	for i, a := range approvals {
		ids[i] = a.ItemID
	}
	found, err := s.queue.FindItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	byID := make(map[string]domain.QueuedImportItem, len(found))
	for _, it := range found {
		byID[it.ItemID] = it
	}

	result := &domain.CommitResult{Committed: []domain.CommittedRef{}}
	allowed := make(map[string]error)
	for _, a := range approvals {
		item, ok := byID[a.ItemID]
		if !ok {
			result.Failed = append(result.Failed, domain.CommitFailure{ItemID: a.ItemID, Reason: apperrors.ErrNotFound.Error()})
			continue
		}
		authErr, checked := allowed[item.AccountID]
		if !checked {
			authErr = s.authorize(ctx, reviewerID, item.AccountID)
			allowed[item.AccountID] = authErr
		}
		if authErr != nil {
			result.Failed = append(result.Failed, domain.CommitFailure{ItemID: item.ItemID, Reason: authErr.Error()})
			continue
		}
		ref, err := s.approveOne(ctx, reviewerID, &item, a.Splits)
		if err != nil {
			s.LogError(ctx, err, "Failed to approve queue item", slog.String("item_id", item.ItemID))
			result.Failed = append(result.Failed, domain.CommitFailure{
				Hash:   item.Transaction.Hash,
				ItemID: item.ItemID,
				Reason: err.Error(),
			})
			continue
		}
		result.Committed = append(result.Committed, domain.CommittedRef{
			Hash:      item.Transaction.Hash,
			ItemID:    item.ItemID,
			LedgerRef: ref,
		})
	}
	s.LogInfo(ctx, "Approval finished", slog.Int("committed", len(result.Committed)), slog.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *queueService) approveOne(ctx context.Context, reviewerID string, item *domain.QueuedImportItem, splits []domain.CategorySplit) (string, error) {
	if err := domain.ValidateSplits(item.Transaction.Amount, splits); err != nil {
		return "", err
	}
	for _, step := range []domain.QueueStatus{domain.QueueReviewing, domain.QueueApproved} {
		if item.Status == step || !item.Status.CanTransitionTo(step) {
			continue
		}
		from := item.Status
		if err := item.Transition(step, reviewerID, s.CurrentTime(), nil); err != nil {
			return "", err
		}
		if err := s.queue.UpdateItemReview(ctx, *item, from); err != nil {
			return "", err
		}
	}
	if item.Status != domain.QueueApproved {
		return "", fmt.Errorf("%w: item %s is %s", domain.ErrInvalidTransition, item.ItemID, item.Status)
	}

	ref, err := s.writer.commit(ctx, item.AccountID, reviewerID, item.Transaction, splits, false)
	if err != nil {
		// The item stays approved so the reviewer can retry.
		return "", err
	}
	if err := item.MarkImported(splits, ref, reviewerID, s.CurrentTime()); err != nil {
		return "", err
	}
	if err := s.queue.UpdateItemReview(ctx, *item, domain.QueueApproved); err != nil {
		// The ledger entry exists and the hash is claimed, so a retry cannot double commit.
		s.LogWarn(ctx, "Failed to mark queue item imported", slog.String("item_id", item.ItemID), slog.String("error", err.Error()))
	}
	return ref, nil
}

func (s *queueService) ListItems(ctx context.Context, userID string, params dto.ListQueueItemsParams) (*dto.ListQueueItemsResponse, error) {
	if err := s.authorize(ctx, userID, params.AccountID); err != nil {
		return nil, err
	}
	filter := domain.QueueFilter{
		AccountID: params.AccountID,
		BatchID:   params.BatchID,
		SetupID:   params.SetupID,
	}
	for _, st := range params.Statuses {
		status := domain.QueueStatus(st)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, st)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultQueuePageSize
	}
	if limit > maxQueuePageSize {
		limit = maxQueuePageSize
	}
	items, next, err := s.queue.ListItems(ctx, filter, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	if items == nil {
		items = []domain.QueuedImportItem{}
	}
	return &dto.ListQueueItemsResponse{Items: items, NextToken: next}, nil
}

func (s *queueService) ListBatches(ctx context.Context, userID, accountID string) ([]domain.ImportBatch, error) {
	if err := s.authorize(ctx, userID, accountID); err != nil {
		return nil, err
	}
	batches, err := s.queue.ListBatches(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	for i := range batches {
		statuses := make([]domain.QueueStatus, 0, batches[i].ItemCount)
		for status, n := range batches[i].StatusCounts {
			for range n {
				statuses = append(statuses, status)
			}
		}
		batches[i].Status = domain.AggregateStatus(statuses)
	}
	if batches == nil {
		return []domain.ImportBatch{}, nil
	}
	return batches, nil
}

// authorize fails with ErrForbidden unless userID has a setup on accountID.
func (s *queueService) authorize(ctx context.Context, userID, accountID string) error {
	ok, err := s.access.HasAccountAccess(ctx, userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to check account access: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: account %s is not linked to this user", apperrors.ErrForbidden, accountID)
	}
	return nil
}
