package handlers_test

import (
	"context"
	"time"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/ingest/columns"
	"github.com/stretchr/testify/mock"
)

// --- Mock ImportService ---
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) AnalyzeTabular(ctx context.Context, userID, accountID string, data []byte) (*dto.AnalyzeResponse, error) {
	args := m.Called(ctx, userID, accountID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyzeResponse), args.Error(1)
}

func (m *MockImportService) PreviewTabular(ctx context.Context, userID, accountID string, data []byte, mapping *domain.ColumnMapping, saveTemplate bool) (*domain.ImportPreview, error) {
	args := m.Called(ctx, userID, accountID, data, mapping, saveTemplate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportPreview), args.Error(1)
}

func (m *MockImportService) PreviewStatementText(ctx context.Context, userID, accountID, text string) (*domain.ImportPreview, error) {
	args := m.Called(ctx, userID, accountID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportPreview), args.Error(1)
}

func (m *MockImportService) PreviewDocument(ctx context.Context, userID, accountID string, doc domain.Document) (*domain.ImportPreview, error) {
	args := m.Called(ctx, userID, accountID, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportPreview), args.Error(1)
}

func (m *MockImportService) Commit(ctx context.Context, req domain.CommitRequest) (*domain.CommitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommitResult), args.Error(1)
}

var _ portssvc.ImportSvc = (*MockImportService)(nil)

// --- Mock QueueService ---
type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) ListItems(ctx context.Context, userID string, params dto.ListQueueItemsParams) (*dto.ListQueueItemsResponse, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListQueueItemsResponse), args.Error(1)
}

func (m *MockQueueService) ListBatches(ctx context.Context, userID, accountID string) ([]domain.ImportBatch, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportBatch), args.Error(1)
}

func (m *MockQueueService) Enqueue(ctx context.Context, accountID string, setupID *string, txns []domain.CanonicalTransaction, actor string) (*domain.EnqueueResult, error) {
	args := m.Called(ctx, accountID, setupID, txns, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueResult), args.Error(1)
}

func (m *MockQueueService) Transition(ctx context.Context, itemID string, next domain.QueueStatus, reviewerID string, notes *string) (*domain.QueuedImportItem, error) {
	args := m.Called(ctx, itemID, next, reviewerID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueuedImportItem), args.Error(1)
}

func (m *MockQueueService) ApproveAndCommit(ctx context.Context, reviewerID string, approvals []domain.ItemApproval) (*domain.CommitResult, error) {
	args := m.Called(ctx, reviewerID, approvals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommitResult), args.Error(1)
}

var _ portssvc.QueueSvcFacade = (*MockQueueService)(nil)

// --- Mock TemplateService ---
type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Resolve(ctx context.Context, userID, accountID string, analysis columns.Analysis, rows []domain.RawRow) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID, analysis, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateService) Save(ctx context.Context, userID, accountID, fingerprint, name string, mapping domain.ColumnMapping) (*domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID, fingerprint, name, mapping)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateService) MarkUsed(ctx context.Context, templateID string) error {
	return m.Called(ctx, templateID).Error(0)
}

func (m *MockTemplateService) List(ctx context.Context, userID, accountID string) ([]domain.ImportTemplate, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportTemplate), args.Error(1)
}

func (m *MockTemplateService) Delete(ctx context.Context, userID, templateID string) error {
	return m.Called(ctx, userID, templateID).Error(0)
}

var _ portssvc.TemplateSvc = (*MockTemplateService)(nil)

// --- Mock SetupService ---
type MockSetupService struct {
	mock.Mock
}

func (m *MockSetupService) CreateSetup(ctx context.Context, userID string, req dto.CreateSetupRequest) (*domain.ImportSetup, string, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.ImportSetup), args.String(1), args.Error(2)
}

func (m *MockSetupService) GetSetup(ctx context.Context, userID, setupID string) (*domain.ImportSetup, error) {
	args := m.Called(ctx, userID, setupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportSetup), args.Error(1)
}

func (m *MockSetupService) ListSetups(ctx context.Context, userID string) ([]domain.ImportSetup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportSetup), args.Error(1)
}

func (m *MockSetupService) VerifyWebhook(ctx context.Context, setupID, token string) (*domain.ImportSetup, error) {
	args := m.Called(ctx, setupID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportSetup), args.Error(1)
}

var _ portssvc.SetupSvc = (*MockSetupService)(nil)

// --- Mock BankSyncService ---
type MockBankSyncService struct {
	mock.Mock
}

func (m *MockBankSyncService) SyncSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error) {
	args := m.Called(ctx, setup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueResult), args.Error(1)
}

func (m *MockBankSyncService) HandleWebhook(ctx context.Context, setup domain.ImportSetup, payload dto.BankWebhookPayload) (*domain.EnqueueResult, error) {
	args := m.Called(ctx, setup, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueResult), args.Error(1)
}

var _ portssvc.BankSyncSvc = (*MockBankSyncService)(nil)

// --- Mock EmailIngestService ---
type MockEmailIngestService struct {
	mock.Mock
}

func (m *MockEmailIngestService) PollSetup(ctx context.Context, setup domain.ImportSetup) (*domain.EnqueueResult, error) {
	args := m.Called(ctx, setup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueResult), args.Error(1)
}

var _ portssvc.EmailIngestSvc = (*MockEmailIngestService)(nil)

// --- Mock MaintenanceService ---
type MockMaintenanceService struct {
	mock.Mock
}

func (m *MockMaintenanceService) SweepOrphans(ctx context.Context, grace time.Duration) (int64, error) {
	args := m.Called(ctx, grace)
	return args.Get(0).(int64), args.Error(1)
}

var _ portssvc.MaintenanceSvc = (*MockMaintenanceService)(nil)
