// Package auth issues and checks the session tokens of the reps API.
//
// SESSION FLOW:
//  1. The user signs in with a password (POST /auth/login) or with GitHub
//     (/auth/github/login → /auth/github/callback).
//  2. The server issues a signed JWT and stores it in an HttpOnly cookie.
//     Password logins also get it in the response body for non-browser
//     clients, which send it back as "Authorization: Bearer <jwt>".
//  3. On every request, OptionalAuth/RequireAuth validate the token and put
//     the user ID in the request context.
//
// WHY JWT?
// A signed token carries the user ID and expiry itself, so validating a
// session needs the secret and nothing else: no session table, no lookup.
//
//	HEADER.PAYLOAD.SIGNATURE
//	{"alg":"HS256"} . {"sub":"<user id>","iss":"remo","exp":...} . HMAC
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const (
	// Issuer is written into and required on every token.
	Issuer = "remo"

	// DefaultTokenTTL is how long a session token stays valid.
	DefaultTokenTTL = 15 * time.Minute
)

// TokenService signs and validates session tokens with an HMAC secret.
//
// The clock is injected so tests can move time forward to expire a token
// instead of sleeping.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewTokenService creates a TokenService with the given secret.
// Generate one with: openssl rand -hex 32
func NewTokenService(secret string, clock clockwork.Clock) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultTokenTTL, clock: clock}, nil
}

// TTL is the lifetime of tokens from Generate; the cookie uses it as Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for userID that expires after TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a subject")
	}

	now := s.clock.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns the user ID in its subject.
//
// CHECKS:
//   - signed with HS256 and our secret (WithValidMethods also blocks the
//     "alg":"none" trick)
//   - issued by Issuer
//   - carries an expiry, and it has not passed on s.clock
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
