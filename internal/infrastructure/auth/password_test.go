package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")

	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$12$"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")

	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))

	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pa55word")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "s3cret-pa55word"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pa55word"))
}
