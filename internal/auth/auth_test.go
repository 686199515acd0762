package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)

	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPassword(hash, "admin123"))
	assert.False(t, CheckPassword(hash, "admin124"))
	assert.False(t, CheckPassword("not-a-hash", "admin123"))
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, err := tokens.Issue("alice")
	require.NoError(t, err)

	username, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokensRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tokens := NewTokens("secret", time.Hour)
	tokens.now = func() time.Time { return now }

	signed, err := tokens.Issue("alice")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("other", time.Hour)
		other.now = tokens.now
		_, err := other.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("secret", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "alice"})
		s, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.Parse(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
