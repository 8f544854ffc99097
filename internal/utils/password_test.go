package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("pw123456", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, VerifyPassword(hash, "pw123456"))
	assert.False(t, VerifyPassword(hash, "pw1234567"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestVerifyPassword_BadHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "pw123456"))
}
