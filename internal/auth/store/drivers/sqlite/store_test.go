package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedUser(t *testing.T, st *Store, id, email string) domain.User {
	t.Helper()

	u := domain.User{ID: id, Email: email, Name: "Test", PasswordHash: "hash"}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestCreateAndLookups(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "u1", "alice@example.com")

	u, err := st.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Nil(t, u.TwoFAEnabled)
	require.Nil(t, u.RefreshTokenHash)
	require.False(t, u.CreatedAt.IsZero())

	_, err = st.Users().GetByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Users().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmailUniqueness(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "u1", "alice@example.com")

	err := st.Users().CreateUser(ctx, domain.User{ID: "u2", Email: "alice@example.com"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestProviderLinking(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "u1", "alice@example.com")
	seedUser(t, st, "u2", "bob@example.com")

	require.NoError(t, st.Users().SetProviderID(ctx, "u1", domain.ProviderGoogle, "g-123"))

	u, err := st.Users().GetByProviderID(ctx, domain.ProviderGoogle, "g-123")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	// The same provider identity cannot land on a second record.
	err = st.Users().SetProviderID(ctx, "u2", domain.ProviderGoogle, "g-123")
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = st.Users().GetByProviderID(ctx, domain.ProviderGitHub, "g-123")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.Users().SetProviderID(ctx, "missing", domain.ProviderGoogle, "g-999")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRotateRefreshTokenHashIsCheckAndSet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "u1", "alice@example.com")
	require.NoError(t, st.Users().SetRefreshTokenHash(ctx, "u1", "hash-a"))

	// First rotation wins.
	require.NoError(t, st.Users().RotateRefreshTokenHash(ctx, "u1", "hash-a", "hash-b"))

	// Replaying the old fingerprint loses.
	err := st.Users().RotateRefreshTokenHash(ctx, "u1", "hash-a", "hash-c")
	require.ErrorIs(t, err, store.ErrNotFound)

	u, err := st.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.RefreshTokenHash)
	require.Equal(t, "hash-b", *u.RefreshTokenHash)
}

func TestConsumeResetToken(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, st, "u1", "alice@example.com")
	require.NoError(t, st.Users().SetRefreshTokenHash(ctx, "u1", "session"))
	require.NoError(t, st.Users().SetResetToken(ctx, "u1", "reset-fp", now.Add(time.Hour)))

	u, err := st.Users().ConsumeResetToken(ctx, "reset-fp", "new-hash", now)
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "new-hash", u.PasswordHash)
	require.Nil(t, u.ResetTokenHash)
	require.Nil(t, u.ResetExpiresAt)
	require.Nil(t, u.RefreshTokenHash, "live session must die with the old password")

	// Second redemption finds nothing.
	_, err = st.Users().ConsumeResetToken(ctx, "reset-fp", "other", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeResetTokenExpired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedUser(t, st, "u1", "alice@example.com")
	require.NoError(t, st.Users().SetResetToken(ctx, "u1", "reset-fp", now.Add(-time.Minute)))

	_, err := st.Users().ConsumeResetToken(ctx, "reset-fp", "new-hash", now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnableTwoFAKeepsFirstTimestamp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedUser(t, st, "u1", "alice@example.com")
	require.NoError(t, st.Users().SetTwoFASecret(ctx, "u1", "SECRET"))

	require.NoError(t, st.Users().EnableTwoFA(ctx, "u1"))
	u, err := st.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u.TwoFAEnabled)
	first := *u.TwoFAEnabled

	// Enabling again is a no-op on the timestamp.
	require.NoError(t, st.Users().EnableTwoFA(ctx, "u1"))
	u, err = st.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, first.Equal(*u.TwoFAEnabled))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{ID: "u1", Email: "alice@example.com"}); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.Users().GetByID(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
