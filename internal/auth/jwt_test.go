package auth_test

import (
	"testing"
	"time"

	"upkeep-backend/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")
	userId := uuid.New()

	token, err := auth.GenerateToken(secret, userId)
	require.NoError(t, err)

	parsed, err := auth.ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, userId, parsed)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken([]byte("secret"), uuid.New())
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Hour).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("secret"), token)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnsignedAlg(t *testing.T) {
	claims := jwt.MapClaims{"sub": uuid.NewString()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("secret"), token)
	assert.Error(t, err)
}

func TestParseTokenRejectsBadSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = auth.ParseToken([]byte("secret"), token)
	assert.Error(t, err)

	_, err = auth.ParseToken([]byte("secret"), "garbage")
	assert.Error(t, err)
}
