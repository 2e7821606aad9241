package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const intruder = "user-2"

type QueueServiceTestSuite struct {
	suite.Suite
	queue     *MockQueueRepository
	committed *MockCommittedRepository
	ledger    *MockLedger
	access    *MockSetupRepository
	service   portssvc.QueueSvcFacade
}

func (suite *QueueServiceTestSuite) SetupTest() {
	suite.queue = new(MockQueueRepository)
	suite.committed = new(MockCommittedRepository)
	suite.ledger = new(MockLedger)
	suite.access = new(MockSetupRepository)
	suite.access.On("HasAccountAccess", mock.Anything, testUser, testAccount).Return(true, nil).Maybe()
	suite.access.On("HasAccountAccess", mock.Anything, intruder, testAccount).Return(false, nil).Maybe()
	suite.service = services.NewQueueService(suite.queue, suite.committed, suite.ledger, suite.access, services.WithQueueClock(clock))
}

func queuedItem(id string, status domain.QueueStatus) domain.QueuedImportItem {
	return domain.QueuedImportItem{
		ItemID:      id,
		BatchID:     "batch-1",
		AccountID:   testAccount,
		Transaction: commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense),
		Status:      status,
	}
}

func (suite *QueueServiceTestSuite) TestEnqueue_QueuesOnlyUnique() {
	ctx := context.Background()
	a := commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense)
	a.Source = domain.SourceBankAPI
	b := commitTxn("2024-03-16", "PAYROLL", "1500.00", domain.Income)
	b.Source = domain.SourceBankAPI
	dup := a
	setupID := "setup-1"

	suite.committed.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{b.Hash: {}}, nil).Once()
	suite.queue.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{}, nil).Once()
	suite.queue.On("InsertItems", ctx, mock.MatchedBy(func(items []domain.QueuedImportItem) bool {
		if len(items) != 1 {
			return false
		}
		it := items[0]
		return it.Transaction.Hash == a.Hash && it.Status == domain.QueuePending &&
			it.SetupID != nil && *it.SetupID == setupID && it.BatchID != "" && it.CreatedAt.Equal(fixedNow)
	})).Return(1, nil).Once()

	res, err := suite.service.Enqueue(ctx, testAccount, &setupID, []domain.CanonicalTransaction{a, b, dup}, "system")

	suite.Require().NoError(err)
	suite.Equal(3, res.Received)
	suite.Equal(1, res.Enqueued)
	suite.NotEmpty(res.BatchID)
	suite.Equal(domain.DedupSummary{Unique: 1, DuplicateWithinFile: 1, DuplicateDatabase: 1}, res.Dedup)
	suite.queue.AssertExpectations(suite.T())
	suite.committed.AssertExpectations(suite.T())
}

func (suite *QueueServiceTestSuite) TestEnqueue_ConcurrentInsertCountsAsPending() {
	ctx := context.Background()
	a := commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense)
	suite.committed.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{}, nil).Once()
	suite.queue.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{}, nil).Once()
	suite.queue.On("InsertItems", ctx, mock.Anything).Return(0, nil).Once()

	res, err := suite.service.Enqueue(ctx, testAccount, nil, []domain.CanonicalTransaction{a}, testUser)

	suite.Require().NoError(err)
	suite.Zero(res.Enqueued)
	suite.Equal(domain.DedupSummary{DuplicatePending: 1}, res.Dedup)
}

func (suite *QueueServiceTestSuite) TestEnqueue_RedeliveryIsIdempotent() {
	ctx := context.Background()
	a := commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense)
	suite.committed.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{}, nil).Once()
	suite.queue.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{a.Hash: {}}, nil).Once()

	res, err := suite.service.Enqueue(ctx, testAccount, nil, []domain.CanonicalTransaction{a}, testUser)

	suite.Require().NoError(err)
	suite.Zero(res.Enqueued)
	suite.Equal(1, res.Dedup.DuplicatePending)
	suite.queue.AssertNotCalled(suite.T(), "InsertItems", mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestEnqueue_RejectedHashStaysRejected() {
	ctx := context.Background()
	a := commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense)
	suite.committed.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(map[string]struct{}{}, nil).Once()
	// the queue lookup covers rejected rows, so the reviewed hash comes back
	suite.queue.On("ExistingHashes", ctx, testAccount, []string{a.Hash}).Return(map[string]struct{}{a.Hash: {}}, nil).Once()

	setupID := "setup-1"
	res, err := suite.service.Enqueue(ctx, testAccount, &setupID, []domain.CanonicalTransaction{a}, "system")

	suite.Require().NoError(err)
	suite.Zero(res.Enqueued)
	suite.Equal(domain.DedupSummary{DuplicatePending: 1}, res.Dedup)
	suite.queue.AssertNotCalled(suite.T(), "InsertItems", mock.Anything, mock.Anything)
	suite.Contains(domain.BlockingQueueStatuses, domain.QueueRejected)
}

func (suite *QueueServiceTestSuite) TestEnqueue_DedupLookupFails() {
	ctx := context.Background()
	a := commitTxn("2024-03-15", "COFFEE SHOP", "52.10", domain.Expense)
	suite.committed.On("ExistingHashes", ctx, testAccount, mock.Anything).Return(nil, assert.AnError).Once()

	res, err := suite.service.Enqueue(ctx, testAccount, nil, []domain.CanonicalTransaction{a}, testUser)

	suite.Require().Error(err)
	suite.Nil(res)
	suite.ErrorIs(err, assert.AnError)
}

func (suite *QueueServiceTestSuite) TestTransition_RecordsReviewer() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueuePending)
	notes := "looks right"
	suite.queue.On("FindItemByID", ctx, "item-1").Return(&item, nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.MatchedBy(func(it domain.QueuedImportItem) bool {
		return it.Status == domain.QueueReviewing && *it.ReviewedBy == testUser && it.ReviewedAt.Equal(fixedNow) && *it.ReviewNotes == notes
	}), domain.QueuePending).Return(nil).Once()

	updated, err := suite.service.Transition(ctx, "item-1", domain.QueueReviewing, testUser, &notes)

	suite.Require().NoError(err)
	suite.Equal(domain.QueueReviewing, updated.Status)
	suite.queue.AssertExpectations(suite.T())
}

func (suite *QueueServiceTestSuite) TestTransition_InvalidJump() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueuePending)
	suite.queue.On("FindItemByID", ctx, "item-1").Return(&item, nil).Once()

	_, err := suite.service.Transition(ctx, "item-1", domain.QueueApproved, testUser, nil)

	suite.ErrorIs(err, domain.ErrInvalidTransition)
	suite.queue.AssertNotCalled(suite.T(), "UpdateItemReview", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestTransition_ImportedOnlyThroughApproval() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueueApproved)
	suite.queue.On("FindItemByID", ctx, "item-1").Return(&item, nil).Once()

	_, err := suite.service.Transition(ctx, "item-1", domain.QueueImported, testUser, nil)

	suite.ErrorIs(err, domain.ErrInvalidTransition)
}

func (suite *QueueServiceTestSuite) TestTransition_StaleStatus() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueueReviewing)
	suite.queue.On("FindItemByID", ctx, "item-1").Return(&item, nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.Anything, domain.QueueReviewing).Return(apperrors.ErrConflict).Once()

	_, err := suite.service.Transition(ctx, "item-1", domain.QueueRejected, testUser, nil)

	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *QueueServiceTestSuite) TestTransition_NotFound() {
	ctx := context.Background()
	suite.queue.On("FindItemByID", ctx, "missing").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.Transition(ctx, "missing", domain.QueueReviewing, testUser, nil)

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *QueueServiceTestSuite) TestApproveAndCommit_StepsThroughReview() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueuePending)
	splits := split("Coffee", "52.10")
	suite.queue.On("FindItemsByIDs", ctx, []string{"item-1"}).Return([]domain.QueuedImportItem{item}, nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.MatchedBy(func(it domain.QueuedImportItem) bool {
		return it.Status == domain.QueueReviewing
	}), domain.QueuePending).Return(nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.MatchedBy(func(it domain.QueuedImportItem) bool {
		return it.Status == domain.QueueApproved
	}), domain.QueueReviewing).Return(nil).Once()
	suite.committed.On("Claim", ctx, mock.MatchedBy(func(c domain.CommittedTransaction) bool {
		return c.Hash == item.Transaction.Hash && c.CommittedBy == testUser
	})).Return(nil).Once()
	suite.ledger.On("CommitEntry", ctx, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return len(e.Splits) == 1 && e.Splits[0].Category == "Coffee"
	}), fixedNow).Return("jrnl-1", nil).Once()
	suite.committed.On("LinkLedger", ctx, mock.Anything, "jrnl-1").Return(nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.MatchedBy(func(it domain.QueuedImportItem) bool {
		return it.Status == domain.QueueImported && *it.LedgerRef == "jrnl-1"
	}), domain.QueueApproved).Return(nil).Once()

	res, err := suite.service.ApproveAndCommit(ctx, testUser, []domain.ItemApproval{{ItemID: "item-1", Splits: splits}})

	suite.Require().NoError(err)
	suite.Equal([]domain.CommittedRef{{Hash: item.Transaction.Hash, ItemID: "item-1", LedgerRef: "jrnl-1"}}, res.Committed)
	suite.Empty(res.Failed)
	suite.queue.AssertExpectations(suite.T())
	suite.committed.AssertExpectations(suite.T())
	suite.ledger.AssertExpectations(suite.T())
}

func (suite *QueueServiceTestSuite) TestApproveAndCommit_ItemsAreIndependent() {
	ctx := context.Background()
	good := queuedItem("good", domain.QueueApproved)
	rejected := queuedItem("rejected", domain.QueueRejected)
	noSplits := queuedItem("no-splits", domain.QueueApproved)
	suite.queue.On("FindItemsByIDs", ctx, []string{"good", "rejected", "no-splits", "missing"}).
		Return([]domain.QueuedImportItem{good, rejected, noSplits}, nil).Once()
	suite.committed.On("Claim", ctx, mock.Anything).Return(nil).Once()
	suite.ledger.On("CommitEntry", ctx, mock.Anything, fixedNow).Return("jrnl-1", nil).Once()
	suite.committed.On("LinkLedger", ctx, mock.Anything, "jrnl-1").Return(nil).Once()
	suite.queue.On("UpdateItemReview", ctx, mock.Anything, domain.QueueApproved).Return(nil).Once()

	res, err := suite.service.ApproveAndCommit(ctx, testUser, []domain.ItemApproval{
		{ItemID: "good", Splits: split("Coffee", "52.10")},
		{ItemID: "rejected", Splits: split("Coffee", "52.10")},
		{ItemID: "no-splits"},
		{ItemID: "missing", Splits: split("Coffee", "52.10")},
	})

	suite.Require().NoError(err)
	suite.Require().Len(res.Committed, 1)
	suite.Equal("good", res.Committed[0].ItemID)
	suite.Require().Len(res.Failed, 3)
	suite.Equal("rejected", res.Failed[0].ItemID)
	suite.Equal("no-splits", res.Failed[1].ItemID)
	suite.Contains(res.Failed[1].Reason, "category split")
	suite.Equal("missing", res.Failed[2].ItemID)
	suite.queue.AssertExpectations(suite.T())
}

func (suite *QueueServiceTestSuite) TestApproveAndCommit_LedgerFailureLeavesItemApproved() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueueApproved)
	suite.queue.On("FindItemsByIDs", ctx, []string{"item-1"}).Return([]domain.QueuedImportItem{item}, nil).Once()
	suite.committed.On("Claim", ctx, mock.Anything).Return(nil).Once()
	suite.ledger.On("CommitEntry", ctx, mock.Anything, fixedNow).Return("", assert.AnError).Once()
	suite.committed.On("Release", ctx, mock.Anything).Return(nil).Once()

	res, err := suite.service.ApproveAndCommit(ctx, testUser, []domain.ItemApproval{{ItemID: "item-1", Splits: split("Coffee", "52.10")}})

	suite.Require().NoError(err)
	suite.Empty(res.Committed)
	suite.Len(res.Failed, 1)
	suite.queue.AssertNotCalled(suite.T(), "UpdateItemReview", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestApproveAndCommit_Empty() {
	_, err := suite.service.ApproveAndCommit(context.Background(), testUser, nil)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QueueServiceTestSuite) TestListItems() {
	ctx := context.Background()
	token := "next"
	expectedFilter := domain.QueueFilter{AccountID: testAccount, Statuses: []domain.QueueStatus{domain.QueuePending}}
	suite.queue.On("ListItems", ctx, expectedFilter, 200, (*string)(nil)).
		Return([]domain.QueuedImportItem{queuedItem("item-1", domain.QueuePending)}, &token, nil).Once()

	res, err := suite.service.ListItems(ctx, testUser, dto.ListQueueItemsParams{AccountID: testAccount, Statuses: []string{"pending"}, Limit: 500})

	suite.Require().NoError(err)
	suite.Len(res.Items, 1)
	suite.Equal(&token, res.NextToken)
	suite.queue.AssertExpectations(suite.T())
}

func (suite *QueueServiceTestSuite) TestListItems_UnknownStatus() {
	_, err := suite.service.ListItems(context.Background(), testUser, dto.ListQueueItemsParams{AccountID: testAccount, Statuses: []string{"done"}})

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QueueServiceTestSuite) TestListBatches_DerivesStatus() {
	ctx := context.Background()
	suite.queue.On("ListBatches", ctx, testAccount).Return([]domain.ImportBatch{
		{BatchID: "b1", ItemCount: 2, StatusCounts: map[domain.QueueStatus]int{domain.QueueApproved: 1, domain.QueueImported: 1}},
		{BatchID: "b2", ItemCount: 2, StatusCounts: map[domain.QueueStatus]int{domain.QueueApproved: 1, domain.QueuePending: 1}},
		{BatchID: "b3", ItemCount: 2, StatusCounts: map[domain.QueueStatus]int{domain.QueueReviewing: 1, domain.QueueRejected: 1}},
		{BatchID: "b4", ItemCount: 1, StatusCounts: map[domain.QueueStatus]int{domain.QueuePending: 1}},
	}, nil).Once()

	batches, err := suite.service.ListBatches(ctx, testUser, testAccount)

	suite.Require().NoError(err)
	suite.Equal(domain.BatchApproved, batches[0].Status)
	suite.Equal(domain.BatchPartiallyApproved, batches[1].Status)
	suite.Equal(domain.BatchReviewing, batches[2].Status)
	suite.Equal(domain.BatchPending, batches[3].Status)
}

func (suite *QueueServiceTestSuite) TestTransition_OtherUsersAccountIsForbidden() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueuePending)
	suite.queue.On("FindItemByID", ctx, "item-1").Return(&item, nil).Once()

	_, err := suite.service.Transition(ctx, "item-1", domain.QueueRejected, intruder, nil)

	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.queue.AssertNotCalled(suite.T(), "UpdateItemReview", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestApproveAndCommit_OtherUsersItemsFail() {
	ctx := context.Background()
	item := queuedItem("item-1", domain.QueueApproved)
	suite.queue.On("FindItemsByIDs", ctx, []string{"item-1"}).Return([]domain.QueuedImportItem{item}, nil).Once()

	res, err := suite.service.ApproveAndCommit(ctx, intruder, []domain.ItemApproval{{ItemID: "item-1", Splits: split("Coffee", "52.10")}})

	suite.Require().NoError(err)
	suite.Empty(res.Committed)
	suite.Require().Len(res.Failed, 1)
	suite.Contains(res.Failed[0].Reason, apperrors.ErrForbidden.Error())
	suite.committed.AssertNotCalled(suite.T(), "Claim", mock.Anything, mock.Anything)
	suite.ledger.AssertNotCalled(suite.T(), "CommitEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestListing_OtherUsersAccountIsForbidden() {
	ctx := context.Background()

	_, err := suite.service.ListItems(ctx, intruder, dto.ListQueueItemsParams{AccountID: testAccount})
	suite.ErrorIs(err, apperrors.ErrForbidden)

	_, err = suite.service.ListBatches(ctx, intruder, testAccount)
	suite.ErrorIs(err, apperrors.ErrForbidden)

	suite.queue.AssertNotCalled(suite.T(), "ListItems", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.queue.AssertNotCalled(suite.T(), "ListBatches", mock.Anything, mock.Anything)
}

func (suite *QueueServiceTestSuite) TestListItems_AccessCheckFails() {
	ctx := context.Background()
	suite.access.On("HasAccountAccess", ctx, testUser, "acct-9").Return(false, assert.AnError).Once()

	_, err := suite.service.ListItems(ctx, testUser, dto.ListQueueItemsParams{AccountID: "acct-9"})

	suite.ErrorIs(err, assert.AnError)
}

func TestQueueServiceTestSuite(t *testing.T) {
	suite.Run(t, new(QueueServiceTestSuite))
}
