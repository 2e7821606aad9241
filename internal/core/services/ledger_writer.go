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
	"github.com/SscSPs/txn_ingest/internal/platform/metrics"
	"github.com/google/uuid"
)

// ledgerWriter runs the claim, commit, link sequence shared by manual and
// queued imports. The hash claim happens first so two concurrent commits of
// the same transaction cannot both reach the ledger; a failed ledger write
// releases the claim, and anything left unlinked is cleaned up by the orphan sweep.
type ledgerWriter struct {
	BaseService
	committed portsrepo.CommittedHashRepository
	ledger    portssvc.LedgerCommitter
}

func (w *ledgerWriter) commit(ctx context.Context, accountID, actor string, txn domain.CanonicalTransaction, splits []domain.CategorySplit, forced bool) (string, error) {
	if err := domain.ValidateSplits(txn.Amount, splits); err != nil {
		return "", err
	}
	now := w.CurrentTime()
	claim := domain.CommittedTransaction{
		CommittedID: uuid.NewString(),
		AccountID:   accountID,
		Hash:        txn.Hash,
		Date:        txn.Date,
		Description: txn.Description,
		Amount:      txn.Amount,
		Direction:   txn.Direction,
		Forced:      forced,
		CommittedAt: now,
		CommittedBy: actor,
	}
	logger := w.GetLogger(ctx).With(slog.String("hash", txn.Hash), slog.String("committed_id", claim.CommittedID))

	if err := w.committed.Claim(ctx, claim); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			metrics.Commits.WithLabelValues("duplicate").Inc()
			return "", fmt.Errorf("transaction %s already committed: %w", txn.Hash, err)
		}
		metrics.Commits.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to claim transaction hash: %w", err)
	}

	ref, err := w.ledger.CommitEntry(ctx, domain.LedgerEntry{
		CommittedID: claim.CommittedID,
		AccountID:   accountID,
		Transaction: txn,
		Splits:      splits,
		CommittedBy: actor,
	}, now)
	if err != nil {
		metrics.Commits.WithLabelValues("error").Inc()
		if relErr := w.committed.Release(ctx, claim.CommittedID); relErr != nil {
			logger.Error("Failed to release hash claim after ledger failure, orphan sweep will remove it", slog.String("error", relErr.Error()))
		}
		return "", fmt.Errorf("failed to write ledger entry: %w", err)
	}

	if err := w.committed.LinkLedger(ctx, claim.CommittedID, ref); err != nil {
		// The journal exists; the sweep relinks it from ledger_journals.committed_id.
		logger.Warn("Failed to link ledger entry to hash claim", slog.String("ledger_ref", ref), slog.String("error", err.Error()))
	}
	metrics.Commits.WithLabelValues("committed").Inc()
	return ref, nil
}
