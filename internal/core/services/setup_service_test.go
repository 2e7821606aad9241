package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SetupServiceTestSuite struct {
	suite.Suite
	repo    *MockSetupRepository
	service portssvc.SetupSvc
}

func (suite *SetupServiceTestSuite) SetupTest() {
	suite.repo = new(MockSetupRepository)
	suite.service = services.NewSetupService(suite.repo)
}

func (suite *SetupServiceTestSuite) storedSetup(token string, active bool) *domain.ImportSetup {
	hash, err := utils.HashSecret(token)
	suite.Require().NoError(err)
	return &domain.ImportSetup{
		SetupID:          "setup-1",
		UserID:           testUser,
		AccountID:        testAccount,
		Kind:             domain.SourceKindBankAPI,
		WebhookTokenHash: hash,
		IsActive:         active,
	}
}

func (suite *SetupServiceTestSuite) TestCreateSetup() {
	ctx := context.Background()
	req := dto.CreateSetupRequest{AccountID: testAccount, Kind: "bank_api", DisplayName: "Checking feed", ExternalRef: "item-42"}
	suite.repo.On("CreateSetup", ctx, mock.MatchedBy(func(s domain.ImportSetup) bool {
		return s.UserID == testUser && s.Kind == domain.SourceKindBankAPI && s.IsActive && s.ExternalRef == "item-42" && s.WebhookTokenHash != ""
	})).Return(nil).Once()

	setup, token, err := suite.service.CreateSetup(ctx, testUser, req)

	suite.Require().NoError(err)
	suite.NotEmpty(setup.SetupID)
	suite.Len(token, 64)
	suite.NotEqual(token, setup.WebhookTokenHash)
	suite.True(utils.CheckSecretHash(token, setup.WebhookTokenHash))
	suite.repo.AssertExpectations(suite.T())
}

func (suite *SetupServiceTestSuite) TestCreateSetup_UnknownKind() {
	_, _, err := suite.service.CreateSetup(context.Background(), testUser, dto.CreateSetupRequest{AccountID: testAccount, Kind: "ftp"})

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.repo.AssertNotCalled(suite.T(), "CreateSetup", mock.Anything, mock.Anything)
}

func (suite *SetupServiceTestSuite) TestGetSetup_OtherUser() {
	ctx := context.Background()
	suite.repo.On("FindSetupByID", ctx, "setup-1").Return(suite.storedSetup("tok", true), nil).Once()

	_, err := suite.service.GetSetup(ctx, "user-2", "setup-1")

	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *SetupServiceTestSuite) TestListSetups_EmptyIsNotNil() {
	ctx := context.Background()
	suite.repo.On("ListSetups", ctx, testUser).Return(nil, nil).Once()

	setups, err := suite.service.ListSetups(ctx, testUser)

	suite.Require().NoError(err)
	suite.NotNil(setups)
	suite.Empty(setups)
}

func (suite *SetupServiceTestSuite) TestVerifyWebhook() {
	ctx := context.Background()
	suite.repo.On("FindSetupByID", ctx, "setup-1").Return(suite.storedSetup("right-token", true), nil)

	setup, err := suite.service.VerifyWebhook(ctx, "setup-1", "right-token")
	suite.Require().NoError(err)
	suite.Equal("setup-1", setup.SetupID)

	_, err = suite.service.VerifyWebhook(ctx, "setup-1", "wrong-token")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.service.VerifyWebhook(ctx, "setup-1", "")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *SetupServiceTestSuite) TestVerifyWebhook_InactiveLooksMissing() {
	ctx := context.Background()
	suite.repo.On("FindSetupByID", ctx, "setup-1").Return(suite.storedSetup("right-token", false), nil).Once()
	suite.repo.On("FindSetupByID", ctx, "nope").Return(nil, apperrors.ErrNotFound).Once()

	_, inactiveErr := suite.service.VerifyWebhook(ctx, "setup-1", "right-token")
	_, missingErr := suite.service.VerifyWebhook(ctx, "nope", "right-token")

	suite.Equal(missingErr, inactiveErr)
	suite.ErrorIs(inactiveErr, apperrors.ErrNotFound)
}

func (suite *SetupServiceTestSuite) TestVerifyWebhook_RepositoryFailure() {
	ctx := context.Background()
	suite.repo.On("FindSetupByID", ctx, "setup-1").Return(nil, assert.AnError).Once()

	_, err := suite.service.VerifyWebhook(ctx, "setup-1", "tok")

	suite.ErrorIs(err, assert.AnError)
	suite.NotErrorIs(err, apperrors.ErrNotFound)
}

func TestSetupServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SetupServiceTestSuite))
}
