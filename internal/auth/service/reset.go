package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/cryptox"
)

// DefaultResetTTL bounds how long a reset link stays redeemable.
const DefaultResetTTL = time.Hour

// ResetMailer delivers the reset link to the account email.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// ResetService drives the forgot/reset password pair. Reset tokens are opaque
// random strings; only their SHA-256 fingerprint is stored, and redemption is
// a single conditional write so a token can never pay out twice.
type ResetService struct {
	Store  store.Store
	Mailer ResetMailer
	Logger *slog.Logger

	// PublicBaseURL is the externally reachable origin the reset link is
	// built against.
	PublicBaseURL string
	TokenTTL      time.Duration

	Now func() time.Time
}

func NewResetService(st store.Store, mailer ResetMailer, logger *slog.Logger, publicBaseURL string) *ResetService {
	return &ResetService{
		Store:         st,
		Mailer:        mailer,
		Logger:        logger,
		PublicBaseURL: publicBaseURL,
		TokenTTL:      DefaultResetTTL,
	}
}

func (s *ResetService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Forgot issues a single-use reset token for the account and mails the link.
// Unknown emails succeed silently; the response never reveals whether an
// account exists. A repeated call supersedes the previous token.
func (s *ResetService) Forgot(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.TokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Delivery is best effort: the token is already armed, and failing the
	// request here would leak which emails have accounts.
	if err := s.Mailer.SendPasswordReset(ctx, user.Email, s.resetURL(token)); err != nil {
		s.Logger.ErrorContext(ctx, "password reset mail failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// Redeem swaps a valid reset token for a new password. The conditional write
// also clears the stored refresh fingerprint, so any live session dies with
// the old password. Wrong, expired and already-used tokens are rejected
// identically.
func (s *ResetService) Redeem(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.Store.Users().ConsumeResetToken(ctx, cryptox.FingerprintToken(token), newHash, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrInvalidOrExpiredToken
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ResetService) resetURL(token string) string {
	return s.PublicBaseURL + "/reset-password?token=" + url.QueryEscape(token)
}
