package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Plaza/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":    "user-1",
		"name":   "Ada",
		"avatar": "cat",
	})

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityID("user-1"), identity.ID)
	assert.Equal(t, "Ada", identity.Name)
	assert.Equal(t, "cat", identity.Avatar)
}

func TestVerifyNameFallsBackToSub(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1"})

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.Name)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "user-1"})

	_, err := v.Verify(token)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(token)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"name": "Ada"})

	_, err := v.Verify(token)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestVerifyGarbage(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	_, err := v.Verify("not-a-token")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}
