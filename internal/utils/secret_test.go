package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := GenerateSecret(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecret(0)
	assert.Error(t, err)
}

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("token-value")
	require.NoError(t, err)
	assert.True(t, CheckSecretHash("token-value", hash))
	assert.False(t, CheckSecretHash("other", hash))
}
