package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("builder123")
	require.NoError(t, err)
	assert.NotEqual(t, "builder123", hash)

	assert.True(t, CheckPassword("builder123", hash))
	assert.False(t, CheckPassword("builder124", hash))
	assert.False(t, CheckPassword("builder123", "not-a-bcrypt-hash"))
}

func TestPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := HashPassword(strings.Repeat("x", 72))
	require.NoError(t, err)
	assert.True(t, CheckPassword(strings.Repeat("x", 72), hash))
}
