package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/cryptox"
	"github.com/aegisauth/aegis/pkg/jwtx"
)

// Default token lifetimes, overridable through TokenService fields.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService mints and rotates the access/refresh pair. Access tokens are
// stateless JWTs; refresh tokens are JWTs too, but only the one whose
// fingerprint sits on the user record is redeemable. Fingerprints are SHA-256,
// so a leaked database column cannot be replayed as a token.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now is the clock, swappable in tests. Nil means time.Now.
	Now func() time.Time
}

func NewTokenService(signer jwtx.Signer, verifier jwtx.Verifier, st store.Store, issuer string) *TokenService {
	return &TokenService{
		Signer:     signer,
		Verifier:   verifier,
		Store:      st,
		Issuer:     issuer,
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
	}
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// IssuePair mints a fresh access/refresh pair for the user and installs the
// refresh fingerprint on the record, displacing any previous session.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	pair, refreshHash, err := s.mint(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Users().SetRefreshTokenHash(ctx, user.ID, refreshHash); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return pair, nil
}

// Refresh redeems a presented refresh token for a new pair, rotating the
// stored fingerprint in one check-and-set. A token that was already rotated
// past fails exactly like a forged one.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Verifier.Verify(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}
	if claims.Kind != jwtx.KindRefresh {
		return domain.TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.Store.Users().GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefreshToken
		}
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, newHash, err := s.mint(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	oldHash := cryptox.FingerprintToken(refreshToken)
	err = s.Store.Users().RotateRefreshTokenHash(ctx, user.ID, oldHash, newHash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// The stored fingerprint moved on: this token was superseded,
		// redeemed already, or revoked by a password reset.
		return domain.TokenPair{}, ErrInvalidRefreshToken
	case err != nil:
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return pair, nil
}

// VerifyAccess validates an access token and returns its claims. Refresh
// tokens are rejected here.
func (s *TokenService) VerifyAccess(accessToken string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(accessToken)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Kind != jwtx.KindAccess {
		return jwtx.Claims{}, jwtx.ErrKind
	}
	return claims, nil
}

func (s *TokenService) mint(user domain.User) (domain.TokenPair, string, error) {
	now := s.now()

	access, err := s.Signer.Sign(jwtx.NewAccessClaims(user.ID, user.Email, s.Issuer, s.AccessTTL, now))
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	refresh, err := s.Signer.Sign(jwtx.NewRefreshClaims(user.ID, s.Issuer, s.RefreshTTL, now))
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	pair := domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}
	return pair, cryptox.FingerprintToken(refresh), nil
}
