package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type EmailIngestServiceTestSuite struct {
	suite.Suite
	mailbox *MockMailbox
	queue   *MockQueueWriter
	text    *MockTextExtractor
	service portssvc.EmailIngestSvc
	setup   domain.ImportSetup
}

func (suite *EmailIngestServiceTestSuite) SetupTest() {
	suite.mailbox = new(MockMailbox)
	suite.queue = new(MockQueueWriter)
	suite.text = new(MockTextExtractor)
	suite.service = services.NewEmailIngestService(suite.mailbox, suite.queue, nil,
		services.WithEmailTextExtractor(suite.text),
		services.WithEmailTimeout(time.Second))
	suite.setup = domain.ImportSetup{
		SetupID:     "setup-mail",
		UserID:      testUser,
		AccountID:   testAccount,
		Kind:        domain.SourceKindEmail,
		ExternalRef: "from:alerts@bank.example has:attachment",
		IsActive:    true,
	}
}

const emailedCSV = "Date,Amount,Description\n2024-03-15,-52.10,COFFEE SHOP\n2024-03-16,1500.00,PAYROLL\n"

func csvDoc() domain.Document {
	return domain.Document{Filename: "march.csv", MIMEType: "text/csv", Data: []byte(emailedCSV)}
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_QueuesAttachmentsAndMarksProcessed() {
	ctx := context.Background()
	suite.mailbox.On("ListMessages", mock.Anything, suite.setup.ExternalRef).Return([]domain.MailMessage{
		{ID: "m1", Subject: "March statement"},
		{ID: "m2", Subject: "Statement PDF"},
	}, nil).Once()
	suite.mailbox.On("FetchAttachments", mock.Anything, "m1").Return([]domain.Document{csvDoc()}, nil).Once()
	pdf := domain.Document{Filename: "stmt.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}
	suite.mailbox.On("FetchAttachments", mock.Anything, "m2").Return([]domain.Document{pdf}, nil).Once()
	suite.text.On("ExtractText", mock.Anything, pdf).Return(bankStatementText, nil).Once()
	suite.queue.On("Enqueue", ctx, testAccount, strPtr("setup-mail"), mock.MatchedBy(func(txns []domain.CanonicalTransaction) bool {
		if len(txns) != 4 {
			return false
		}
		return txns[0].Source == domain.SourceEmail && txns[0].SourceRef == "m1" &&
			txns[3].Source == domain.SourceEmail && txns[3].SourceRef == "m2"
	}), "system").Return(&domain.EnqueueResult{Received: 4, Enqueued: 4}, nil).Once()
	suite.mailbox.On("MarkProcessed", mock.Anything, "m1").Return(nil).Once()
	suite.mailbox.On("MarkProcessed", mock.Anything, "m2").Return(nil).Once()

	res, err := suite.service.PollSetup(ctx, suite.setup)

	suite.Require().NoError(err)
	suite.Equal(4, res.Enqueued)
	suite.mailbox.AssertExpectations(suite.T())
	suite.queue.AssertExpectations(suite.T())
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_TransientFailureIsRetriedLater() {
	ctx := context.Background()
	pdf := domain.Document{Filename: "stmt.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}
	suite.mailbox.On("ListMessages", mock.Anything, suite.setup.ExternalRef).Return([]domain.MailMessage{
		{ID: "m1", Subject: "Broken"},
		{ID: "m2", Subject: "March statement"},
	}, nil).Once()
	suite.mailbox.On("FetchAttachments", mock.Anything, "m1").Return([]domain.Document{pdf}, nil).Once()
	suite.text.On("ExtractText", mock.Anything, pdf).Return("", assert.AnError).Once()
	suite.mailbox.On("FetchAttachments", mock.Anything, "m2").Return([]domain.Document{csvDoc()}, nil).Once()
	suite.queue.On("Enqueue", ctx, testAccount, strPtr("setup-mail"), mock.MatchedBy(func(txns []domain.CanonicalTransaction) bool {
		return len(txns) == 2
	}), "system").Return(&domain.EnqueueResult{Received: 2, Enqueued: 2}, nil).Once()
	suite.mailbox.On("MarkProcessed", mock.Anything, "m2").Return(nil).Once()

	res, err := suite.service.PollSetup(ctx, suite.setup)

	suite.Require().NoError(err)
	suite.Contains(res.Warnings, `message "Broken" could not be read`)
	suite.mailbox.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, "m1")
	suite.mailbox.AssertExpectations(suite.T())
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_UnsupportedAttachmentIsSkipped() {
	ctx := context.Background()
	img := domain.Document{Filename: "receipt.png", MIMEType: "image/png", Data: []byte{0x89}}
	suite.mailbox.On("ListMessages", mock.Anything, suite.setup.ExternalRef).Return([]domain.MailMessage{{ID: "m1", Subject: "Receipt"}}, nil).Once()
	suite.mailbox.On("FetchAttachments", mock.Anything, "m1").Return([]domain.Document{img}, nil).Once()
	suite.queue.On("Enqueue", ctx, testAccount, strPtr("setup-mail"), mock.Anything, "system").
		Return(&domain.EnqueueResult{}, nil).Once()
	suite.mailbox.On("MarkProcessed", mock.Anything, "m1").Return(nil).Once()

	res, err := suite.service.PollSetup(ctx, suite.setup)

	suite.Require().NoError(err)
	suite.Require().Len(res.Warnings, 1)
	suite.Contains(res.Warnings[0], `attachment "receipt.png" skipped`)
	suite.mailbox.AssertExpectations(suite.T())
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_RateLimitStopsPoll() {
	ctx := context.Background()
	suite.mailbox.On("ListMessages", mock.Anything, suite.setup.ExternalRef).Return([]domain.MailMessage{
		{ID: "m1", Subject: "One"},
		{ID: "m2", Subject: "Two"},
	}, nil).Once()
	suite.mailbox.On("FetchAttachments", mock.Anything, "m1").Return(nil, &apperrors.RateLimitError{Provider: "gmail", RetryAfter: time.Minute}).Once()
	suite.queue.On("Enqueue", ctx, testAccount, strPtr("setup-mail"), mock.Anything, "system").
		Return(&domain.EnqueueResult{}, nil).Once()

	_, err := suite.service.PollSetup(ctx, suite.setup)

	suite.Require().NoError(err)
	suite.mailbox.AssertNotCalled(suite.T(), "FetchAttachments", mock.Anything, "m2")
	suite.mailbox.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything)
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_MailboxUnavailable() {
	suite.mailbox.On("ListMessages", mock.Anything, suite.setup.ExternalRef).Return(nil, assert.AnError).Once()

	_, err := suite.service.PollSetup(context.Background(), suite.setup)

	suite.ErrorIs(err, apperrors.ErrExternalService)
}

func (suite *EmailIngestServiceTestSuite) TestPollSetup_WrongKind() {
	suite.setup.Kind = domain.SourceKindBankAPI

	_, err := suite.service.PollSetup(context.Background(), suite.setup)

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mailbox.AssertNotCalled(suite.T(), "ListMessages", mock.Anything, mock.Anything)
}

func TestEmailIngestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EmailIngestServiceTestSuite))
}
