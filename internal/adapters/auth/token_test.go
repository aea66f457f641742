package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret")

	token, err := codec.Issue("user-123", "guild-1", 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.ParticipantID)
	assert.Equal(t, "guild-1", claims.CommunityID)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	token, err := NewTokenCodec("secret-a").Issue("user-123", "guild-1", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenCodec("secret-b").Verify(token)
	require.Error(t, err)
}

func TestTokenCodec_Expired(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	token, err := codec.Issue("user-123", "guild-1", -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.Error(t, err)
}

func TestTokenCodec_MissingCommunity(t *testing.T) {
	codec := NewTokenCodec("test-secret")

	// Signed with the right secret but without a community claim: rejected,
	// every operation needs the community scope.
	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.Error(t, err)
}
