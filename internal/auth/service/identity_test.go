package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/store"
)

type staticEmailSource struct {
	email string
	err   error
}

func (s staticEmailSource) PrimaryVerifiedEmail(context.Context, string) (string, error) {
	return s.email, s.err
}

func googleProfile(id, email string) domain.FederatedProfile {
	return domain.FederatedProfile{
		Provider:   domain.ProviderGoogle,
		ProviderID: id,
		Email:      email,
		Name:       "Alice",
	}
}

func TestResolveCreatesNewAccount(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	u, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "Alice@Example.com"))
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "g-123", u.ProviderID(domain.ProviderGoogle))
	require.False(t, u.HasPassword())

	stored, err := st.Users().GetByProviderID(ctx, domain.ProviderGoogle, "g-123")
	require.NoError(t, err)
	require.Equal(t, u.ID, stored.ID)
}

func TestResolvePrefersProviderLinkOverEmail(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "alice@example.com"))
	require.NoError(t, err)

	// Same provider id with a changed email still lands on the same record.
	again, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "renamed@example.com"))
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
}

func TestResolveLinksIntoPasswordAccount(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	userID := mustRegister(t, auth, "alice@example.com", "correct horse")

	u, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "alice@example.com"))
	require.NoError(t, err)
	require.Equal(t, userID, u.ID)

	stored, err := st.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "g-123", stored.ProviderID(domain.ProviderGoogle))
	require.True(t, stored.HasPassword(), "linking must not touch the password")
}

func TestResolveEmailFallback(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	profile := domain.FederatedProfile{
		Provider:    domain.ProviderGitHub,
		ProviderID:  "gh-42",
		Name:        "Alice",
		AccessToken: "tok",
	}

	// No fallback registered: the login cannot be keyed on anything.
	_, err := auth.Identity.Resolve(ctx, profile)
	require.ErrorIs(t, err, provider.ErrNoVerifiedEmail)

	auth.Identity.EmailSources[domain.ProviderGitHub] = staticEmailSource{email: "Alice@Example.com"}

	u, err := auth.Identity.Resolve(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "gh-42", u.ProviderID(domain.ProviderGitHub))
}

// racingStore simulates losing the first-login insert race: every CreateUser
// reports the uniqueness violation a concurrent winner would have caused.
type racingStore struct {
	store.Store
}

func (s racingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(racingTx{tx})
	})
}

// storeTx renames the embedded interface so the field name does not shadow
// the promoted Tx method required by store.Tx.
type storeTx = store.Tx

type racingTx struct {
	storeTx
}

func (t racingTx) Users() store.Users { return racingUsers{t.storeTx.Users()} }

type racingUsers struct {
	store.Users
}

func (racingUsers) CreateUser(context.Context, domain.User) error {
	return store.ErrConflict
}

func TestResolveLostCreateRaceIsRetryable(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	auth.Identity.Store = racingStore{st}

	_, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "alice@example.com"))
	require.ErrorIs(t, err, ErrConflictRetryable)

	// The retry (here: against the store without the racer) succeeds.
	auth.Identity.Store = st
	u, err := auth.Identity.Resolve(ctx, googleProfile("g-123", "alice@example.com"))
	require.NoError(t, err)
	require.Equal(t, "g-123", u.ProviderID(domain.ProviderGoogle))
}

func TestResolveFallbackWithoutVerifiedEmail(t *testing.T) {
	auth, _ := newTestAuth(t)

	auth.Identity.EmailSources[domain.ProviderGitHub] = staticEmailSource{err: provider.ErrNoVerifiedEmail}

	_, err := auth.Identity.Resolve(context.Background(), domain.FederatedProfile{
		Provider:    domain.ProviderGitHub,
		ProviderID:  "gh-42",
		AccessToken: "tok",
	})
	require.ErrorIs(t, err, provider.ErrNoVerifiedEmail)
}

func TestFederatedLoginHitsSecondFactorGate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	userID := mustRegister(t, auth, "alice@example.com", "correct horse")

	enrollment, err := auth.Setup2FA(ctx, userID)
	require.NoError(t, err)
	completeEnrollment(t, auth, userID, enrollment.Secret)

	res, err := auth.FederatedLogin(ctx, googleProfile("g-123", "alice@example.com"))
	require.NoError(t, err)
	require.True(t, res.SecondFactorRequired)
	require.Nil(t, res.Tokens)
	require.Equal(t, userID, res.UserID)
}
