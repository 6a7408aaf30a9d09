package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: token required")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims mirrors the JWT payload issued by the account service: the user id
// lives in a custom "id" claim, with the registered subject as a fallback.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens presented at handshake time.
type TokenVerifier struct {
	signingSecret []byte
	issuer        string
	clock         func() time.Time
}

func NewTokenVerifier(signingSecret []byte, issuer string) *TokenVerifier {
	return &TokenVerifier{
		signingSecret: signingSecret,
		issuer:        issuer,
		clock:         time.Now,
	}
}

// Verify checks the signature, expiry and (when configured) issuer of the
// presented credential and returns the authenticated user id.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(v.clock)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return v.signingSecret, nil
		},
		opts...,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.ID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}
