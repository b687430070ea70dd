package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign claims into a compact
// token string. Keeping this an interface leaves the signing scheme pluggable
// without touching the token service.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier validates a compact token string and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// MinSecretLen is the minimum accepted HMAC secret length in bytes.
const MinSecretLen = 32

// HS256 signs and verifies tokens with a single process-wide symmetric
// secret. The secret is passed in at construction, never read from ambient
// state.
type HS256 struct {
	secret []byte
	issuer string
}

var _ Signer = (*HS256)(nil)
var _ Verifier = (*HS256)(nil)

// NewHS256 creates a symmetric signer/verifier. The secret must carry at
// least MinSecretLen bytes.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakKey
	}
	return &HS256{secret: secret, issuer: issuer}, nil
}

func (s *HS256) Alg() string { return "HS256" }

// Sign produces a compact HS256 JWT for the given claims.
func (s *HS256) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

// Verify parses and validates a compact token: signature, expiry, not-before
// and issuer. It does NOT check the token kind; callers assert that against
// the endpoint they serve.
func (s *HS256) Verify(raw string) (Claims, error) {
	claims := Claims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrInvalidToken
		}
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return Claims{}, ErrIssuer
	}

	return claims, nil
}
