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
)

// maxSyncPages bounds one sync run; the cursor resumes the rest next time.
const maxSyncPages = 20

const systemActor = "system"

type bankSyncService struct {
	extraction
	feed  portssvc.BankFeedClient
	queue portssvc.QueueWriterSvc
	repo  portsrepo.SetupRepositoryFacade
}

// BankSyncServiceOption is a function that configures a bankSyncService
type BankSyncServiceOption func(*bankSyncService)

// WithBankSyncTimeout overrides DefaultRemoteTimeout for feed calls.
func WithBankSyncTimeout(d time.Duration) BankSyncServiceOption {
	return func(s *bankSyncService) { s.remoteTimeout = d }
}

// WithBankSyncCategorizer sets the category suggestion collaborator.
func WithBankSyncCategorizer(c portssvc.Categorizer) BankSyncServiceOption {
	return func(s *bankSyncService) { s.categorizer = c }
}

// NewBankSyncService creates the bank aggregator import service.
func NewBankSyncService(feed portssvc.BankFeedClient, queue portssvc.QueueWriterSvc, repo portsrepo.SetupRepositoryFacade, options ...BankSyncServiceOption) portssvc.BankSyncSvc {
	svc := &bankSyncService{feed: feed, queue: queue, repo: repo}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.BankSyncSvc = (*bankSyncService)(nil)

// SyncSetup pulls pages from the stored cursor and enqueues them. The cursor
// is saved only after the transactions it covers are queued.
func (s *bankSyncService) SyncSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error) {
	if setup.Kind != domain.SourceKindBankAPI {
		return nil, fmt.Errorf("%w: setup %s is not a bank feed", apperrors.ErrValidation, setup.SetupID)
	}
	logger := s.GetLogger(ctx).With(slog.String("setup_id", setup.SetupID))

	var txns []domain.CanonicalTransaction
	cursor := setup.SyncCursor
	for page := 0; page < maxSyncPages; page++ {
		rctx, cancel := s.remoteCtx(ctx)
		res, err := s.feed.FetchTransactions(rctx, setup.ExternalRef, cursor)
		cancel()
		if err != nil {
			if len(txns) == 0 {
				return nil, remoteErr("bank_feed", err)
			}
			// Keep what was fetched; the cursor stays at the last good page.
			logger.Warn("Bank feed page failed, enqueueing partial sync", slog.String("error", err.Error()))
			break
		}
		txns = append(txns, bankTransactions(res.Transactions)...)
		if res.NextCursor != nil {
			cursor = res.NextCursor
		}
		if !res.HasMore {
			break
		}
	}

	result, err := s.enqueue(ctx, setup, txns)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSyncCursor(ctx, setup.SetupID, cursor, s.CurrentTime()); err != nil {
		s.LogError(ctx, err, "Failed to store sync cursor", slog.String("setup_id", setup.SetupID))
		return nil, fmt.Errorf("failed to store sync cursor: %w", err)
	}
	return result, nil
}

// HandleWebhook enqueues pushed transactions, or runs a pull when the
// notification carries none.
func (s *bankSyncService) HandleWebhook(ctx context.Context, setup domain.ImportSetup, payload dto.BankWebhookPayload) (*domain.EnqueueResult, error) {
	s.LogInfo(ctx, "Bank webhook received", slog.String("setup_id", setup.SetupID), slog.String("event", payload.Event))
	if len(payload.Transactions) == 0 {
		return s.SyncSetup(ctx, setup)
	}
	return s.enqueue(ctx, setup, bankTransactions(payload.Transactions))
}

func (s *bankSyncService) enqueue(ctx context.Context, setup domain.ImportSetup, txns []domain.CanonicalTransaction) (*domain.EnqueueResult, error) {
	run := s.newRun(ctx, setup.UserID, setup.AccountID, domain.SourceBankAPI)
	s.suggestCategories(ctx, run, txns)
	result, err := s.queue.Enqueue(ctx, setup.AccountID, &setup.SetupID, txns, systemActor)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, run.warnings...)
	return result, nil
}

// bankTransactions converts feed items, dropping malformed and pending ones;
// pending items change before they post.
func bankTransactions(in []domain.BankTransaction) []domain.CanonicalTransaction {
	out := make([]domain.CanonicalTransaction, 0, len(in))
	for _, bt := range in {
		if bt.Pending || bt.Amount.IsZero() || !bt.Direction.IsValid() {
			continue
		}
		merchant := bt.Merchant
		if merchant == "" {
			merchant = domain.MerchantFromDescription(bt.Description)
		}
		txn := domain.CanonicalTransaction{
			Date:        bt.Date,
			Description: dedup.NormalizeDescription(bt.Description),
			Merchant:    merchant,
			Amount:      bt.Amount.Abs(),
			Direction:   bt.Direction,
			RawRow:      feedRecord(bt),
			Source:      domain.SourceBankAPI,
			SourceRef:   bt.ProviderID,
		}
		dedup.HashTransaction(&txn)
		out = append(out, txn)
	}
	return out
}

// feedRecord renders the provider record that stands in for a raw row. The
// provider id keeps separate same-day, same-amount items apart, while pull and
// webhook deliveries of one item still render alike.
func feedRecord(bt domain.BankTransaction) string {
	return domain.RawRow{
		bt.ProviderID,
		bt.Date.String(),
		bt.Description,
		bt.Amount.Abs().StringFixed(2),
		string(bt.Direction),
	}.Text()
}
