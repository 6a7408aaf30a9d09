package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, claims *Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestVerifyReturnsUserIDFromIDClaim(t *testing.T) {
	secret := []byte("super-secret")
	v := NewTokenVerifier(secret, "")

	token := signToken(t, secret, &Claims{
		ID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	secret := []byte("super-secret")
	v := NewTokenVerifier(secret, "")

	token := signToken(t, secret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-456",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-456", userID)
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	v := NewTokenVerifier([]byte("super-secret"), "")

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := []byte("super-secret")
	v := NewTokenVerifier(secret, "")

	token := signToken(t, secret, &Claims{
		ID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewTokenVerifier([]byte("the-real-secret"), "")

	token := signToken(t, []byte("someone-elses-secret"), &Claims{
		ID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	secret := []byte("super-secret")
	v := NewTokenVerifier(secret, "inkstream")

	token := signToken(t, secret, &Claims{
		ID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "impostor",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTokenWithoutIdentity(t *testing.T) {
	secret := []byte("super-secret")
	v := NewTokenVerifier(secret, "")

	token := signToken(t, secret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
