package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/stretchr/testify/mock"
)

// --- Mock TemplateRepository ---
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) FindTemplateByFingerprint(ctx context.Context, userID, accountID, fingerprint string) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateRepository) FindTemplateByID(ctx context.Context, templateID string) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateRepository) UpsertTemplate(ctx context.Context, tpl domain.ImportTemplate) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateRepository) TouchTemplate(ctx context.Context, templateID string, usedAt time.Time) error {
	args := m.Called(ctx, templateID, usedAt)
	return args.Error(0)
}

func (m *MockTemplateRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

// --- Mock CommittedHashRepository ---
type MockCommittedRepository struct {
	mock.Mock
}

func (m *MockCommittedRepository) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	args := m.Called(ctx, accountID, hashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockCommittedRepository) Claim(ctx context.Context, c domain.CommittedTransaction) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCommittedRepository) LinkLedger(ctx context.Context, committedID, ledgerRef string) error {
	args := m.Called(ctx, committedID, ledgerRef)
	return args.Error(0)
}

func (m *MockCommittedRepository) Release(ctx context.Context, committedID string) error {
	args := m.Called(ctx, committedID)
	return args.Error(0)
}

func (m *MockCommittedRepository) SweepOrphans(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock QueueRepository ---
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error) {
	args := m.Called(ctx, accountID, hashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockQueueRepository) FindItemByID(ctx context.Context, itemID string) (*domain.QueuedImportItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueuedImportItem), args.Error(1)
}

func (m *MockQueueRepository) FindItemsByIDs(ctx context.Context, itemIDs []string) ([]domain.QueuedImportItem, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueuedImportItem), args.Error(1)
}

func (m *MockQueueRepository) ListItems(ctx context.Context, filter domain.QueueFilter, limit int, nextToken *string) ([]domain.QueuedImportItem, *string, error) {
	args := m.Called(ctx, filter, limit, nextToken)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.QueuedImportItem), next, args.Error(2)
}

func (m *MockQueueRepository) ListBatches(ctx context.Context, accountID string) ([]domain.ImportBatch, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportBatch), args.Error(1)
}

func (m *MockQueueRepository) InsertItems(ctx context.Context, items []domain.QueuedImportItem) (int, error) {
	args := m.Called(ctx, items)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueRepository) UpdateItemReview(ctx context.Context, item domain.QueuedImportItem, from domain.QueueStatus) error {
	args := m.Called(ctx, item, from)
	return args.Error(0)
}

// --- Mock SetupRepository ---
type MockSetupRepository struct {
	mock.Mock
}

func (m *MockSetupRepository) CreateSetup(ctx context.Context, setup domain.ImportSetup) error {
	args := m.Called(ctx, setup)
	return args.Error(0)
}

func (m *MockSetupRepository) FindSetupByID(ctx context.Context, setupID string) (*domain.ImportSetup, error) {
	args := m.Called(ctx, setupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportSetup), args.Error(1)
}

func (m *MockSetupRepository) ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportSetup), args.Error(1)
}

func (m *MockSetupRepository) ListActiveSetups(ctx context.Context, kind domain.SourceKind) ([]domain.ImportSetup, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportSetup), args.Error(1)
}

func (m *MockSetupRepository) HasAccountAccess(ctx context.Context, userID, accountID string) (bool, error) {
	args := m.Called(ctx, userID, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSetupRepository) UpdateSyncCursor(ctx context.Context, setupID string, cursor *string, syncedAt time.Time) error {
	args := m.Called(ctx, setupID, cursor, syncedAt)
	return args.Error(0)
}

// --- Mock LedgerCommitter ---
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CommitEntry(ctx context.Context, entry domain.LedgerEntry, at time.Time) (string, error) {
	args := m.Called(ctx, entry, at)
	return args.String(0), args.Error(1)
}

// --- Mock TemplateSvc ---
type MockTemplateSvc struct {
	mock.Mock
}

func (m *MockTemplateSvc) Resolve(ctx context.Context, userID, accountID string, analysis columns.Analysis, rows []domain.RawRow) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID, analysis, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateSvc) Save(ctx context.Context, userID, accountID, fingerprint, name string, mapping domain.ColumnMapping) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID, fingerprint, name, mapping)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateSvc) MarkUsed(ctx context.Context, templateID string) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

func (m *MockTemplateSvc) List(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateSvc) Delete(ctx context.Context, userID, templateID string) error {
	args := m.Called(ctx, userID, templateID)
	return args.Error(0)
}

// --- Mock collaborators ---
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, doc domain.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

type MockVisionExtractor struct {
	mock.Mock
}

func (m *MockVisionExtractor) ExtractRows(ctx context.Context, doc domain.Document) ([][]string, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]string), args.Error(1)
}

type MockCategorizer struct {
	mock.Mock
}

func (m *MockCategorizer) Suggest(ctx context.Context, txn domain.CanonicalTransaction) (string, error) {
	args := m.Called(ctx, txn)
	return args.String(0), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, accountID string, doc domain.Document) (string, error) {
	args := m.Called(ctx, accountID, doc)
	return args.String(0), args.Error(1)
}

type MockBankFeed struct {
	mock.Mock
}

func (m *MockBankFeed) FetchTransactions(ctx context.Context, externalRef string, cursor *string) (*domain.BankFeedPage, error) {
	args := m.Called(ctx, externalRef, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankFeedPage), args.Error(1)
}

type MockMailbox struct {
	mock.Mock
}

func (m *MockMailbox) ListMessages(ctx context.Context, query string) ([]domain.MailMessage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MailMessage), args.Error(1)
}

func (m *MockMailbox) FetchAttachments(ctx context.Context, messageID string) ([]domain.Document, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockMailbox) MarkProcessed(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// --- Mock QueueWriterSvc ---
type MockQueueWriter struct {
	mock.Mock
}

func (m *MockQueueWriter) Enqueue(ctx context.Context, accountID string, setupID *string, txns []domain.CanonicalTransaction, actor string) (*domain.EnqueueResult, error) {
	args := m.Called(ctx, accountID, setupID, txns, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueResult), args.Error(1)
}

func (m *MockQueueWriter) Transition(ctx context.Context, itemID string, next domain.QueueStatus, reviewerID string, notes *string) (*domain.QueuedImportItem, error) {
	args := m.Called(ctx, itemID, next, reviewerID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueuedImportItem), args.Error(1)
}

func (m *MockQueueWriter) ApproveAndCommit(ctx context.Context, reviewerID string, approvals []domain.ItemApproval) (*domain.CommitResult, error) {
	args := m.Called(ctx, reviewerID, approvals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommitResult), args.Error(1)
}

var fixedNow = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
