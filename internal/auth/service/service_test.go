package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/internal/auth/store/drivers/sqlite"
	"github.com/aegisauth/aegis/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuth(t *testing.T) (*AuthService, store.Store) {
	t.Helper()

	st := newTestStore(t)

	hs, err := jwtx.NewHS256([]byte(testSecret), "aegis-test")
	require.NoError(t, err)

	tokens := NewTokenService(hs, hs, st, "aegis-test")
	identity := NewIdentityService(st)
	auth := NewAuthService(st, tokens, NewTOTPService("aegis-test"), identity, newTestLogger())
	return auth, st
}

func mustRegister(t *testing.T, auth *AuthService, email, password string) string {
	t.Helper()

	res, err := auth.Register(context.Background(), email, password, "Test User")
	require.NoError(t, err)
	require.False(t, res.SecondFactorRequired)
	require.NotNil(t, res.Tokens)
	return res.UserID
}

func completeEnrollment(t *testing.T, auth *AuthService, userID, secret string) {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	_, err = auth.Verify2FA(context.Background(), userID, code)
	require.NoError(t, err)
}
