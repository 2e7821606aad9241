package apperrors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwraps(t *testing.T) {
	err := apperrors.NewAppError(500, "failed to insert", apperrors.ErrDuplicate)

	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	assert.Equal(t, "failed to insert: resource already exists", err.Error())
	assert.Equal(t, "no cause", apperrors.NewAppError(400, "no cause", nil).Error())
}

func TestRateLimitError(t *testing.T) {
	wrapped := fmt.Errorf("sync failed: %w", &apperrors.RateLimitError{Provider: "bankfeed", RetryAfter: 30 * time.Second})

	rl, ok := apperrors.IsRateLimited(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
	assert.ErrorIs(t, wrapped, apperrors.ErrExternalService)
	assert.Contains(t, rl.Error(), "retry after 30s")

	_, ok = apperrors.IsRateLimited(errors.New("boom"))
	assert.False(t, ok)
}
