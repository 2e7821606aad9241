package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
)

type emailIngestService struct {
	extraction
	mailbox portssvc.Mailbox
	queue   portssvc.QueueWriterSvc
}

// EmailIngestServiceOption is a function that configures an emailIngestService
type EmailIngestServiceOption func(*emailIngestService)

// WithEmailTextExtractor sets the PDF-to-text collaborator.
func WithEmailTextExtractor(t portssvc.TextExtractor) EmailIngestServiceOption {
	return func(s *emailIngestService) { s.text = t }
}

// WithEmailVisionExtractor sets the image table collaborator.
func WithEmailVisionExtractor(v portssvc.VisionExtractor) EmailIngestServiceOption {
	return func(s *emailIngestService) { s.vision = v }
}

// WithEmailCategorizer sets the category suggestion collaborator.
func WithEmailCategorizer(c portssvc.Categorizer) EmailIngestServiceOption {
	return func(s *emailIngestService) { s.categorizer = c }
}

// WithEmailArchive sets where fetched attachments are stored.
func WithEmailArchive(a portssvc.DocumentArchive) EmailIngestServiceOption {
	return func(s *emailIngestService) { s.archive = a }
}

// WithEmailTimeout overrides DefaultRemoteTimeout for mailbox and extraction calls.
func WithEmailTimeout(d time.Duration) EmailIngestServiceOption {
	return func(s *emailIngestService) { s.remoteTimeout = d }
}

// NewEmailIngestService creates the mailbox polling service. templates may be
// nil; when set, saved column mappings apply to emailed CSV exports too.
func NewEmailIngestService(mailbox portssvc.Mailbox, queue portssvc.QueueWriterSvc, templates portssvc.TemplateSvc, options ...EmailIngestServiceOption) portssvc.EmailIngestSvc {
	svc := &emailIngestService{
		extraction: extraction{templates: templates},
		mailbox:    mailbox,
		queue:      queue,
	}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.EmailIngestSvc = (*emailIngestService)(nil)

// PollSetup processes every message matching the setup's search query. A
// message is marked processed only when all its attachments were handled, so
// a transient failure is retried on the next poll. Dedup makes the retry safe.
func (s *emailIngestService) PollSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error) {
	if setup.Kind != domain.SourceKindEmail {
		return nil, fmt.Errorf("%w: setup %s is not a mailbox", apperrors.ErrValidation, setup.SetupID)
	}
	logger := s.GetLogger(ctx).With(slog.String("setup_id", setup.SetupID))

	rctx, cancel := s.remoteCtx(ctx)
	messages, err := s.mailbox.ListMessages(rctx, setup.ExternalRef)
	cancel()
	if err != nil {
		return nil, remoteErr("mailbox", err)
	}

	run := s.newRun(ctx, setup.UserID, setup.AccountID, domain.SourceEmail)
	var (
		txns      []domain.CanonicalTransaction
		processed []string
	)
	for _, msg := range messages {
		msgTxns, err := s.readMessage(ctx, run, msg)
		if err != nil {
			if _, limited := apperrors.IsRateLimited(err); limited {
				logger.Warn("Mailbox rate limited, stopping poll", slog.String("message_id", msg.ID))
				break
			}
			logger.Warn("Failed to read message, will retry", slog.String("message_id", msg.ID), slog.String("error", err.Error()))
			run.warn(fmt.Sprintf("message %q could not be read", msg.Subject))
			continue
		}
		txns = append(txns, msgTxns...)
		processed = append(processed, msg.ID)
	}

	result, err := s.queue.Enqueue(ctx, setup.AccountID, &setup.SetupID, txns, systemActor)
	if err != nil {
		return nil, err
	}
	for _, id := range processed {
		mctx, cancel := s.remoteCtx(ctx)
		err := s.mailbox.MarkProcessed(mctx, id)
		cancel()
		if err != nil {
			logger.Warn("Failed to mark message processed", slog.String("message_id", id), slog.String("error", err.Error()))
		}
	}
	result.Warnings = append(result.Warnings, run.warnings...)
	logger.Info("Mailbox poll finished", slog.Int("messages", len(messages)), slog.Int("processed", len(processed)), slog.Int("enqueued", result.Enqueued))
	return result, nil
}

func (s *emailIngestService) readMessage(ctx context.Context, run *importRun, msg domain.MailMessage) ([]domain.CanonicalTransaction, error) {
	rctx, cancel := s.remoteCtx(ctx)
	docs, err := s.mailbox.FetchAttachments(rctx, msg.ID)
	cancel()
	if err != nil {
		return nil, remoteErr("mailbox", err)
	}
	var out []domain.CanonicalTransaction
	for _, doc := range docs {
		preview, err := s.documentPreview(ctx, run, doc, msg.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrExternalService) {
				return nil, err
			}
			// Unsupported or malformed attachments are not retried.
			run.warn(fmt.Sprintf("attachment %q skipped: %v", doc.Filename, err))
			continue
		}
		if !preview.FormatRecognized {
			run.warn(fmt.Sprintf("attachment %q: %s", doc.Filename, formatNotRecognized))
			continue
		}
		for _, txn := range preview.Transactions {
			txn.Source = domain.SourceEmail
			txn.SourceRef = msg.ID
			out = append(out, txn)
		}
	}
	return out, nil
}
