package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/cryptox"
	"github.com/aegisauth/aegis/pkg/idx"
)

// MinPasswordLen is the accepted password floor. Composition rules are left
// to the caller's UI; length is the only hard requirement here.
const MinPasswordLen = 8

// ValidatePassword applies the password policy shared by registration and
// reset redemption.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

// AuthService is the front door of the identity core. It orchestrates the
// credential, federated and second-factor flows over the narrower services.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	TOTP     *TOTPService
	Identity *IdentityService
	Logger   *slog.Logger
}

func NewAuthService(st store.Store, tokens *TokenService, totp *TOTPService, identity *IdentityService, logger *slog.Logger) *AuthService {
	return &AuthService{
		Store:    st,
		Tokens:   tokens,
		TOTP:     totp,
		Identity: identity,
		Logger:   logger,
	}
}

// Register creates a password account and signs it in. The email uniqueness
// check is the insert itself; a lost race reports ErrEmailTaken just like a
// plain duplicate.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if err := ValidatePassword(password); err != nil {
		return domain.LoginResult{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.LoginResult{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	err = s.Store.Users().CreateUser(ctx, user)
	switch {
	case errors.Is(err, store.ErrConflict):
		return domain.LoginResult{}, ErrEmailTaken
	case err != nil:
		return domain.LoginResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.Logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return s.finishLogin(ctx, user)
}

// Login authenticates by email and password. Unknown email and wrong password
// are indistinguishable to the caller. Accounts with the second factor
// enabled stop at the TOTP gate instead of receiving tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Burn a hash anyway so timing does not betray known emails.
		cryptox.CheckPassword(password, "")
		return domain.LoginResult{}, ErrInvalidCredentials
	case err != nil:
		return domain.LoginResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !user.HasPassword() || !cryptox.CheckPassword(password, user.PasswordHash) {
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	return s.finishLogin(ctx, user)
}

// FederatedLogin completes an OAuth callback: the profile is resolved onto a
// local record (linking or creating as needed) and the session is issued. The
// second-factor gate applies to federated logins the same as password ones.
func (s *AuthService) FederatedLogin(ctx context.Context, profile domain.FederatedProfile) (domain.LoginResult, error) {
	user, err := s.Identity.Resolve(ctx, profile)
	if err != nil {
		return domain.LoginResult{}, err
	}

	s.Logger.InfoContext(ctx, "federated login",
		slog.String("user_id", user.ID),
		slog.String("provider", string(profile.Provider)),
	)
	return s.finishLogin(ctx, user)
}

// Setup2FA starts (or restarts) second-factor enrollment for the user. The
// fresh secret replaces any unconfirmed candidate but stays inert until the
// first code verifies. Re-running setup on an already-enabled account swaps
// the secret without dropping the enabled state.
func (s *AuthService) Setup2FA(ctx context.Context, userID string) (domain.TOTPEnrollment, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TOTPEnrollment{}, ErrInvalidCredentials
	case err != nil:
		return domain.TOTPEnrollment{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	enrollment, err := s.TOTP.Generate(user.Email)
	if err != nil {
		return domain.TOTPEnrollment{}, err
	}

	if err := s.Store.Users().SetTwoFASecret(ctx, user.ID, enrollment.Secret); err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return enrollment, nil
}

// Verify2FA checks a TOTP code for the user. It serves both halves of the
// second-factor story: the first success completes enrollment (stamping the
// enabled-at time), and any success on an enabled account finishes a login
// that stopped at the gate. Either way a fresh token pair is issued.
func (s *AuthService) Verify2FA(ctx context.Context, userID, code string) (domain.TokenPair, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.TokenPair{}, ErrInvalidCredentials
	case err != nil:
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.TwoFASecret == nil {
		return domain.TokenPair{}, ErrSecondFactorNotStarted
	}
	if !s.TOTP.Verify(code, *user.TwoFASecret) {
		return domain.TokenPair{}, ErrInvalidCode
	}

	if !user.SecondFactorEnabled() {
		if err := s.Store.Users().EnableTwoFA(ctx, user.ID); err != nil {
			return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.Logger.InfoContext(ctx, "second factor enabled", slog.String("user_id", user.ID))
	}

	return s.Tokens.IssuePair(ctx, user)
}

// finishLogin applies the second-factor gate and issues tokens when the
// account clears it.
func (s *AuthService) finishLogin(ctx context.Context, user domain.User) (domain.LoginResult, error) {
	if user.SecondFactorEnabled() {
		return domain.LoginResult{UserID: user.ID, SecondFactorRequired: true}, nil
	}

	pair, err := s.Tokens.IssuePair(ctx, user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{UserID: user.ID, Tokens: &pair}, nil
}
