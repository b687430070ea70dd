package domain

import (
	"strings"
	"time"
)

// Provider identifies a supported federated login provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderGitHub
}

// User is the single durable record of this service. All token, second-factor
// and reset state hangs off it; there is no separate session table because
// only one refresh token per user is ever valid.
type User struct {
	ID           string
	Email        string // unique, stored case-folded
	Name         string
	PasswordHash string // argon2 encoded; empty for federated-only accounts

	// Federated identities. Each non-nil value is unique across all records.
	GoogleID *string
	GitHubID *string

	// TwoFAEnabled is the timestamp of the first successful TOTP
	// verification (nullable). A nil value means the second factor is off,
	// even if a candidate secret is already stored.
	TwoFAEnabled *time.Time
	TwoFASecret  *string // base32 TOTP seed; candidate until TwoFAEnabled is set

	// RefreshTokenHash is the fingerprint of the single currently-valid
	// refresh token. Any other presented token fails the refresh flow.
	RefreshTokenHash *string

	// Password-reset pair; always set and cleared together.
	ResetTokenHash *string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecondFactorEnabled reports whether login must demand a TOTP code.
func (u User) SecondFactorEnabled() bool { return u.TwoFAEnabled != nil }

// HasPassword reports whether the account can authenticate by password at
// all. Federated-only accounts cannot.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// ProviderID returns the stored identity for the given provider, or "".
func (u User) ProviderID(p Provider) string {
	switch p {
	case ProviderGoogle:
		if u.GoogleID != nil {
			return *u.GoogleID
		}
	case ProviderGitHub:
		if u.GitHubID != nil {
			return *u.GitHubID
		}
	}
	return ""
}

// NormalizeEmail is the single email canonicalization policy: trim and
// case-fold. The store and every lookup agree on this, which is what makes
// the email uniqueness invariant meaningful.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
