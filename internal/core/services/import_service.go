package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portsrepo "github.com/SscSPs/txn_ingest/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/SscSPs/txn_ingest/internal/ingest/dedup"
	"github.com/SscSPs/txn_ingest/internal/ingest/rowmap"
	"github.com/SscSPs/txn_ingest/internal/ingest/statement"
	"github.com/SscSPs/txn_ingest/internal/ingest/tabular"
	"github.com/SscSPs/txn_ingest/internal/platform/metrics"
)

// DefaultRemoteTimeout bounds each call to an external collaborator.
const DefaultRemoteTimeout = 30 * time.Second

const formatNotRecognized = "format not recognized"

// extraction holds the collaborators and the pipeline shared by the manual
// import flow and the automatic (queue) flows.
type extraction struct {
	BaseService
	templates     portssvc.TemplateSvc
	committed     portsrepo.CommittedHashRepository
	pending       portsrepo.QueueReader
	text          portssvc.TextExtractor
	vision        portssvc.VisionExtractor
	categorizer   portssvc.Categorizer
	archive       portssvc.DocumentArchive
	remoteTimeout time.Duration
}

// importRun is the state of one ingestion run. It is created per call and
// dropped at the end; nothing is cached between runs.
type importRun struct {
	userID    string
	accountID string
	logger    *slog.Logger
	warnings  []string
}

func (e *extraction) newRun(ctx context.Context, userID, accountID string, source domain.Source) *importRun {
	return &importRun{
		userID:    userID,
		accountID: accountID,
		logger: e.GetLogger(ctx).With(
			slog.String("account_id", accountID),
			slog.String("source", string(source)),
		),
	}
}

func (r *importRun) warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

func (e *extraction) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.remoteTimeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// remoteErr converts a collaborator failure into a processing error, keeping
// rate limits distinguishable.
func remoteErr(collaborator string, err error) error {
	metrics.ExternalFailures.WithLabelValues(collaborator).Inc()
	if _, ok := apperrors.IsRateLimited(err); ok {
		return fmt.Errorf("%s: %w", collaborator, err)
	}
	if errors.Is(err, apperrors.ErrExternalService) {
		return fmt.Errorf("%s: %w", collaborator, err)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrExternalService, collaborator, err)
}

// resolveMapping picks the mapping for rows: the override, then a saved
// template, then inference.
func (e *extraction) resolveMapping(ctx context.Context, run *importRun, analysis columns.Analysis, rows []domain.RawRow, override *domain.ColumnMapping) (domain.ColumnMapping, *domain.ImportTemplate, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return domain.ColumnMapping{}, nil, err
		}
		return *override, nil, nil
	}
	if e.templates != nil {
		tpl, err := e.templates.Resolve(ctx, run.userID, run.accountID, analysis, rows)
		if err != nil {
			return domain.ColumnMapping{}, nil, err
		}
		if tpl != nil {
			run.logger.Debug("Using saved template", slog.String("template_id", tpl.TemplateID))
			return tpl.Mapping, tpl, nil
		}
	}
	return analysis.Mapping, nil, nil
}

func (e *extraction) tabularPreview(ctx context.Context, run *importRun, rows []domain.RawRow, override *domain.ColumnMapping, saveTemplate bool, opts rowmap.Options) (*domain.ImportPreview, error) {
	analysis := columns.Analyze(rows)
	mapping, tpl, err := e.resolveMapping(ctx, run, analysis, rows, override)
	if err != nil {
		return nil, err
	}
	preview := &domain.ImportPreview{
		AccountID:   run.accountID,
		Source:      opts.Source,
		Fingerprint: analysis.Fingerprint,
		Mapping:     &mapping,
	}
	if tpl != nil {
		preview.TemplateID = &tpl.TemplateID
	}
	if !mapping.Recognized() {
		run.logger.Info("Tabular format not recognized", slog.String("fingerprint", analysis.Fingerprint))
		preview.Message = formatNotRecognized
		preview.Transactions = []domain.CanonicalTransaction{}
		return preview, nil
	}
	preview.FormatRecognized = true

	res := rowmap.Map(rows, mapping, opts)
	preview.Issues = res.Issues
	metrics.RowsSkipped.WithLabelValues(string(opts.Source)).Add(float64(len(res.Issues)))

	switch {
	case saveTemplate && e.templates != nil:
		saved, err := e.templates.Save(ctx, run.userID, run.accountID, analysis.Fingerprint, "", mapping)
		if err != nil {
			run.warn("mapping could not be saved as a template")
		} else {
			preview.TemplateID = &saved.TemplateID
		}
	case tpl != nil:
		if err := e.templates.MarkUsed(ctx, tpl.TemplateID); err != nil {
			run.logger.Warn("Failed to record template use", slog.String("error", err.Error()))
		}
	}

	preview.Transactions = res.Transactions
	return preview, e.finish(ctx, run, preview)
}

func (e *extraction) statementPreview(ctx context.Context, run *importRun, text string, source domain.Source, sourceRef string) (*domain.ImportPreview, error) {
	res := statement.Extract(text, statement.Options{
		Today:     civil.DateOf(e.CurrentTime()),
		Source:    source,
		SourceRef: sourceRef,
	})
	preview := &domain.ImportPreview{
		AccountID:        run.accountID,
		Source:           source,
		FormatRecognized: res.FormatRecognized,
		Strategy:         string(res.Strategy),
		Transactions:     res.Transactions,
	}
	for _, w := range res.Warnings {
		if w == formatNotRecognized {
			preview.Message = w
			continue
		}
		run.warn(w)
	}
	if !res.FormatRecognized {
		preview.Transactions = []domain.CanonicalTransaction{}
		preview.Warnings = run.warnings
		return preview, nil
	}
	return preview, e.finish(ctx, run, preview)
}

// finish classifies the preview against all dedup tiers and adds suggestions.
func (e *extraction) finish(ctx context.Context, run *importRun, preview *domain.ImportPreview) error {
	var committed, pending dedup.HashLookup
	if e.committed != nil {
		committed = e.committed
	}
	if e.pending != nil {
		pending = e.pending
	}
	summary, err := dedup.Classify(ctx, run.accountID, preview.Transactions, committed, pending)
	if err != nil {
		return fmt.Errorf("failed to check duplicates: %w", err)
	}
	preview.Dedup = summary
	metrics.RowsParsed.WithLabelValues(string(preview.Source)).Add(float64(len(preview.Transactions)))
	metrics.RecordDedup(summary.DuplicateWithinFile, summary.DuplicateDatabase, summary.DuplicatePending)

	e.suggestCategories(ctx, run, preview.Transactions)
	preview.Warnings = run.warnings
	run.logger.Info("Extraction finished",
		slog.Int("transactions", len(preview.Transactions)),
		slog.Int("duplicates", summary.Duplicates()),
		slog.Int("issues", len(preview.Issues)))
	return nil
}

func (e *extraction) suggestCategories(ctx context.Context, run *importRun, txns []domain.CanonicalTransaction) {
	if e.categorizer == nil {
		return
	}
	failed := 0
	for i := range txns {
		if txns[i].DedupStatus.IsDuplicate() {
			continue
		}
		rctx, cancel := e.remoteCtx(ctx)
		category, err := e.categorizer.Suggest(rctx, txns[i])
		cancel()
		if err != nil {
			failed++
			continue
		}
		txns[i].SuggestedCategory = category
	}
	if failed > 0 {
		metrics.ExternalFailures.WithLabelValues("categorizer").Add(float64(failed))
		run.logger.Warn("Category suggestions failed", slog.Int("failed", failed))
		run.warn(fmt.Sprintf("category suggestion unavailable for %d transaction(s)", failed))
	}
}

// documentPreview routes a document to the tabular, vision or text path.
func (e *extraction) documentPreview(ctx context.Context, run *importRun, doc domain.Document, sourceRef string) (*domain.ImportPreview, error) {
	var archiveRef string
	if e.archive != nil {
		actx, cancel := e.remoteCtx(ctx)
		ref, err := e.archive.Archive(actx, run.accountID, doc)
		cancel()
		if err != nil {
			metrics.ExternalFailures.WithLabelValues("archive").Inc()
			run.logger.Warn("Failed to archive document", slog.String("filename", doc.Filename), slog.String("error", err.Error()))
		} else {
			archiveRef = ref
		}
	}

	var (
		preview *domain.ImportPreview
		err     error
	)
	switch {
	case doc.IsTabular():
		table, rerr := tabular.Read(doc.Data)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, rerr)
		}
		preview, err = e.tabularPreview(ctx, run, table.Rows, nil, false, rowmap.Options{Source: domain.SourceTabular, SourceRef: sourceRef})
	case doc.IsImage():
		if e.vision == nil {
			return nil, fmt.Errorf("%w: image extraction is not configured", apperrors.ErrValidation)
		}
		rctx, cancel := e.remoteCtx(ctx)
		cells, verr := e.vision.ExtractRows(rctx, doc)
		cancel()
		if verr != nil {
			return nil, remoteErr("vision", verr)
		}
		preview, err = e.tabularPreview(ctx, run, tabular.Rows(cells), nil, false, rowmap.Options{Source: domain.SourceImage, SourceRef: sourceRef})
	default:
		if e.text == nil {
			return nil, fmt.Errorf("%w: document text extraction is not configured", apperrors.ErrValidation)
		}
		rctx, cancel := e.remoteCtx(ctx)
		text, terr := e.text.ExtractText(rctx, doc)
		cancel()
		if terr != nil {
			return nil, remoteErr("text_extractor", terr)
		}
		preview, err = e.statementPreview(ctx, run, text, domain.SourceDocument, sourceRef)
	}
	if err != nil {
		return nil, err
	}
	preview.ArchiveRef = archiveRef
	return preview, nil
}

type importService struct {
	extraction
	writer ledgerWriter
}

// ImportServiceOption is a function that configures an importService
type ImportServiceOption func(*importService)

// WithTextExtractor sets the document-to-text collaborator.
func WithTextExtractor(t portssvc.TextExtractor) ImportServiceOption {
	return func(s *importService) { s.text = t }
}

// WithVisionExtractor sets the image table collaborator.
func WithVisionExtractor(v portssvc.VisionExtractor) ImportServiceOption {
	return func(s *importService) { s.vision = v }
}

// WithCategorizer sets the category suggestion collaborator.
func WithCategorizer(c portssvc.Categorizer) ImportServiceOption {
	return func(s *importService) { s.categorizer = c }
}

// WithDocumentArchive sets where raw uploads are stored.
func WithDocumentArchive(a portssvc.DocumentArchive) ImportServiceOption {
	return func(s *importService) { s.archive = a }
}

// WithRemoteTimeout overrides DefaultRemoteTimeout.
func WithRemoteTimeout(d time.Duration) ImportServiceOption {
	return func(s *importService) { s.remoteTimeout = d }
}

// WithImportClock pins the service clock.
func WithImportClock(now func() time.Time) ImportServiceOption {
	return func(s *importService) {
		s.extraction.Now = now
		s.writer.Now = now
	}
}

// NewImportService creates the manual import service.
func NewImportService(
	templates portssvc.TemplateSvc,
	committed portsrepo.CommittedHashRepository,
	pending portsrepo.QueueReader,
	ledger portssvc.LedgerCommitter,
	options ...ImportServiceOption,
) portssvc.ImportSvc {
	svc := &importService{
		extraction: extraction{
			templates: templates,
			committed: committed,
			pending:   pending,
		},
		writer: ledgerWriter{committed: committed, ledger: ledger},
	}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

var _ portssvc.ImportSvc = (*importService)(nil)

func (s *importService) AnalyzeTabular(ctx context.Context, userID, accountID string, data []byte) (*dto.AnalyzeResponse, error) {
	table, err := tabular.Read(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	run := s.newRun(ctx, userID, accountID, domain.SourceTabular)
	analysis := columns.Analyze(table.Rows)
	mapping, tpl, err := s.resolveMapping(ctx, run, analysis, table.Rows, nil)
	if err != nil {
		return nil, err
	}
	resp := &dto.AnalyzeResponse{
		Analysis:   analysis,
		Mapping:    mapping,
		Recognized: mapping.Recognized(),
	}
	if tpl != nil {
		resp.TemplateID = &tpl.TemplateID
	}
	if !resp.Recognized {
		resp.Message = formatNotRecognized
	}
	return resp, nil
}

func (s *importService) PreviewTabular(ctx context.Context, userID, accountID string, data []byte, mapping *domain.ColumnMapping, saveTemplate bool) (*domain.ImportPreview, error) {
	table, err := tabular.Read(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	run := s.newRun(ctx, userID, accountID, domain.SourceTabular)
	return s.tabularPreview(ctx, run, table.Rows, mapping, saveTemplate, rowmap.Options{Source: domain.SourceTabular})
}

func (s *importService) PreviewStatementText(ctx context.Context, userID, accountID, text string) (*domain.ImportPreview, error) {
	run := s.newRun(ctx, userID, accountID, domain.SourceStatementText)
	return s.statementPreview(ctx, run, text, domain.SourceStatementText, "")
}

func (s *importService) PreviewDocument(ctx context.Context, userID, accountID string, doc domain.Document) (*domain.ImportPreview, error) {
	run := s.newRun(ctx, userID, accountID, domain.SourceDocument)
	return s.documentPreview(ctx, run, doc, doc.Filename)
}

// Commit validates every selected transaction's splits before writing any of
// them, then commits one by one. Each input is reported exactly once.
func (s *importService) Commit(ctx context.Context, req domain.CommitRequest) (*domain.CommitResult, error) {
	type pendingCommit struct {
		txn    domain.CanonicalTransaction
		forced bool
	}
	result := &domain.CommitResult{Committed: []domain.CommittedRef{}}
	var selected []pendingCommit
	for _, txn := range req.Transactions {
		dedup.HashTransaction(&txn)
		forced := req.ForceInclude[txn.Hash]
		if txn.DedupStatus.IsDuplicate() && !forced {
			result.SkippedDuplicates++
			continue
		}
		if err := domain.ValidateSplits(txn.Amount, req.Splits[txn.Hash]); err != nil {
			return nil, fmt.Errorf("transaction %s (%s): %w", txn.Hash, txn.Description, err)
		}
		selected = append(selected, pendingCommit{txn: txn, forced: forced})
	}

	for _, p := range selected {
		ref, err := s.writer.commit(ctx, req.AccountID, req.UserID, p.txn, req.Splits[p.txn.Hash], p.forced)
		if err != nil {
			s.LogError(ctx, err, "Failed to commit transaction", slog.String("hash", p.txn.Hash))
			result.Failed = append(result.Failed, domain.CommitFailure{Hash: p.txn.Hash, Reason: err.Error()})
			continue
		}
		result.Committed = append(result.Committed, domain.CommittedRef{Hash: p.txn.Hash, LedgerRef: ref})
	}
	s.LogInfo(ctx, "Commit finished",
		slog.String("account_id", req.AccountID),
		slog.Int("committed", len(result.Committed)),
		slog.Int("skipped_duplicates", result.SkippedDuplicates),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}
