// Package auth issues and validates the signed session tokens handed to
// admin clients, and hashes their passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the validity window of an issued token.
	DefaultTokenTTL = 7 * 24 * time.Hour

	// MinSecretLength guards against trivially guessable HMAC keys.
	MinSecretLength = 32
)

var ErrWeakSecret = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// Claims is the token payload: {userId, email, iat, exp}.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for user. The returned time is the token expiry.
func (s *TokenService) Issue(user domain.AuthUser) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
func (s *TokenService) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parse jwt: %w", err)
	}
	if claims.UserID == 0 {
		return nil, errors.New("parse jwt: missing userId claim")
	}
	return &claims, nil
}

// DecodeUnverified reads the payload of raw WITHOUT checking the signature.
// Only use it to skip a pointless network round-trip for a token that is
// visibly expired; never to make an authorization decision.
func DecodeUnverified(raw string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode jwt: %w", err)
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("decode jwt: missing exp claim")
	}
	return &claims, nil
}

// ExpiredAt reports whether the claims' expiry has passed at now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time)
}
