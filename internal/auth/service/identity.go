package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/idx"
)

// EmailSource resolves an account email when the provider's profile payload
// withholds one. GitHub implements this via its emails endpoint.
type EmailSource interface {
	PrimaryVerifiedEmail(ctx context.Context, accessToken string) (string, error)
}

// IdentityService maps a federated profile onto a local user record. The
// precedence is fixed: an existing provider link wins, then an email match
// links the identity into the existing account, and only then is a new
// account created.
type IdentityService struct {
	Store store.Store

	// EmailSources supplies per-provider email fallbacks, keyed by provider.
	EmailSources map[domain.Provider]EmailSource
}

func NewIdentityService(st store.Store) *IdentityService {
	return &IdentityService{
		Store:        st,
		EmailSources: make(map[domain.Provider]EmailSource),
	}
}

// Resolve finds or creates the user record for a federated profile. The
// lookup-then-write runs inside one transaction; a racer that wins the same
// insert surfaces as ErrConflictRetryable so the caller can simply re-run.
func (s *IdentityService) Resolve(ctx context.Context, profile domain.FederatedProfile) (domain.User, error) {
	if !profile.Provider.Valid() || profile.ProviderID == "" {
		return domain.User{}, fmt.Errorf("identity: malformed profile for %q", profile.Provider)
	}

	email, err := s.resolveEmail(ctx, profile)
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		users := tx.Users()

		// 1. Returning user: the provider identity is already linked.
		u, err := users.GetByProviderID(ctx, profile.Provider, profile.ProviderID)
		if err == nil {
			user = u
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// 2. Known email: link the identity into the existing account.
		u, err = users.GetByEmail(ctx, email)
		if err == nil {
			if err := users.SetProviderID(ctx, u.ID, profile.Provider, profile.ProviderID); err != nil {
				return err
			}
			if err := setProvider(&u, profile); err != nil {
				return err
			}
			user = u
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// 3. First login: create a fresh account keyed on this identity.
		u = domain.User{
			ID:    idx.New().String(),
			Email: email,
			Name:  profile.Name,
		}
		if err := setProvider(&u, profile); err != nil {
			return err
		}
		if err := users.CreateUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	switch {
	case errors.Is(err, store.ErrConflict):
		return domain.User{}, ErrConflictRetryable
	case err != nil:
		return domain.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return user, nil
}

func (s *IdentityService) resolveEmail(ctx context.Context, profile domain.FederatedProfile) (string, error) {
	if profile.Email != "" {
		return domain.NormalizeEmail(profile.Email), nil
	}

	src, ok := s.EmailSources[profile.Provider]
	if !ok {
		return "", provider.ErrNoVerifiedEmail
	}
	email, err := src.PrimaryVerifiedEmail(ctx, profile.AccessToken)
	if err != nil {
		return "", err
	}
	return domain.NormalizeEmail(email), nil
}

func setProvider(u *domain.User, profile domain.FederatedProfile) error {
	id := profile.ProviderID
	switch profile.Provider {
	case domain.ProviderGoogle:
		u.GoogleID = &id
	case domain.ProviderGitHub:
		u.GitHubID = &id
	default:
		return fmt.Errorf("identity: unsupported provider %q", profile.Provider)
	}
	return nil
}
