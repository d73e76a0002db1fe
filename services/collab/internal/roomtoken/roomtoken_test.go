package roomtoken

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidateRoundTrip(t *testing.T) {
	secret := []byte("secret-key")
	tokenStr, err := Sign(secret, "match-1", "user-1", time.Minute)
	require.NoError(t, err)

	claims, err := Validate(tokenStr, secret)
	require.NoError(t, err)
	assert.Equal(t, "match-1", claims.MatchID)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateWrongSecret(t *testing.T) {
	tokenStr, err := Sign([]byte("secret-a"), "m", "u", time.Minute)
	require.NoError(t, err)

	_, err = Validate(tokenStr, []byte("secret-b"))
	assert.Error(t, err)
}

func TestValidateUnexpectedSigningMethod(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &RoomTokenClaims{
		MatchID: "m",
		UserID:  "u",
	}).SignedString(key)
	require.NoError(t, err)

	_, err = Validate(tokenStr, []byte("secret"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected signing method")
}

func TestValidateExpired(t *testing.T) {
	secret := []byte("secret-b")
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &RoomTokenClaims{
		MatchID: "m",
		UserID:  "u",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = Validate(tokenStr, secret)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	value, err := ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)

	for _, header := range []string{"", "Token abc123", "Bearer", strings.TrimSpace("Bearer ")} {
		_, err := ExtractTokenFromHeader(header)
		assert.Error(t, err, "header %q should be rejected", header)
	}
}
