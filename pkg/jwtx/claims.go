package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates the two token types this service mints. A refresh token
// must never be accepted where an access token is expected, and vice versa.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims are the JWT claims embedded in both token kinds. Access tokens carry
// the subject's email so resource servers can skip a store lookup; refresh
// tokens carry only the subject id.
type Claims struct {
	jwt.RegisteredClaims

	Kind  Kind   `json:"typ"`
	Email string `json:"email,omitempty"`
}

// NewAccessClaims builds claims for a short-lived stateless access token.
func NewAccessClaims(subject, email, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(subject, issuer, ttl, now)
	c.Kind = KindAccess
	c.Email = email
	return c
}

// NewRefreshClaims builds claims for a long-lived refresh token. The payload
// is deliberately minimal; validity is decided against the stored record.
func NewRefreshClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(subject, issuer, ttl, now)
	c.Kind = KindRefresh
	return c
}

func newClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// minted in the same second for the same subject must still differ.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
