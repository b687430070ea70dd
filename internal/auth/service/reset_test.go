package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/cryptox"
)

type captureMailer struct {
	to       string
	resetURL string
	err      error
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	m.to = to
	m.resetURL = resetURL
	return m.err
}

func (m *captureMailer) token(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(m.resetURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestReset(t *testing.T) (*AuthService, *ResetService, *captureMailer) {
	t.Helper()

	auth, st := newTestAuth(t)
	mailer := &captureMailer{}
	reset := NewResetService(st, mailer, newTestLogger(), "https://auth.example.com")
	return auth, reset, mailer
}

func TestForgotAndRedeem(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")

	require.NoError(t, reset.Forgot(ctx, "Alice@Example.com"))
	require.Equal(t, "alice@example.com", mailer.to)
	require.True(t, strings.HasPrefix(mailer.resetURL, "https://auth.example.com/reset-password?token="))

	token := mailer.token(t)
	require.NoError(t, reset.Redeem(ctx, token, "battery staple"))

	// Old password is dead, new one works.
	_, err := auth.Login(ctx, "alice@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	res, err := auth.Login(ctx, "alice@example.com", "battery staple")
	require.NoError(t, err)
	require.NotNil(t, res.Tokens)
}

func TestForgotArmsFingerprintNotRawToken(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	mailer := &captureMailer{}
	reset := NewResetService(st, mailer, newTestLogger(), "https://auth.example.com")

	userID := mustRegister(t, auth, "alice@example.com", "correct horse")
	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	token := mailer.token(t)

	// The record is keyed by the token's fingerprint, never the raw token.
	u, err := st.Users().GetByResetTokenHash(ctx, cryptox.FingerprintToken(token))
	require.NoError(t, err)
	require.Equal(t, userID, u.ID)
	require.NotNil(t, u.ResetExpiresAt)

	_, err = st.Users().GetByResetTokenHash(ctx, token)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestForgotUnknownEmailSucceedsSilently(t *testing.T) {
	_, reset, mailer := newTestReset(t)

	require.NoError(t, reset.Forgot(context.Background(), "nobody@example.com"))
	require.Empty(t, mailer.resetURL)
}

func TestForgotMailFailureStillArmsToken(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")
	mailer.err = errors.New("smtp down")

	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	require.NoError(t, reset.Redeem(ctx, mailer.token(t), "battery staple"))
}

func TestRedeemIsSingleUse(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")
	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	token := mailer.token(t)

	require.NoError(t, reset.Redeem(ctx, token, "battery staple"))
	require.ErrorIs(t, reset.Redeem(ctx, token, "third password"), ErrInvalidOrExpiredToken)
}

func TestRedeemRejectsExpiredAndUnknownTokens(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")

	require.ErrorIs(t, reset.Redeem(ctx, "no-such-token", "battery staple"), ErrInvalidOrExpiredToken)

	// Arm a token in the past so it is expired on redemption.
	past := time.Now().Add(-2 * time.Hour)
	reset.Now = func() time.Time { return past }
	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	reset.Now = nil

	require.ErrorIs(t, reset.Redeem(ctx, mailer.token(t), "battery staple"), ErrInvalidOrExpiredToken)
}

func TestNewerTokenSupersedesOlder(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")

	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	first := mailer.token(t)
	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	second := mailer.token(t)

	require.ErrorIs(t, reset.Redeem(ctx, first, "battery staple"), ErrInvalidOrExpiredToken)
	require.NoError(t, reset.Redeem(ctx, second, "battery staple"))
}

func TestRedeemRevokesLiveSession(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")
	res, err := auth.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))
	require.NoError(t, reset.Redeem(ctx, mailer.token(t), "battery staple"))

	// The pre-reset refresh token no longer redeems.
	_, err = auth.Tokens.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRedeemWeakPassword(t *testing.T) {
	auth, reset, mailer := newTestReset(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")
	require.NoError(t, reset.Forgot(ctx, "alice@example.com"))

	require.ErrorIs(t, reset.Redeem(ctx, mailer.token(t), "short"), ErrWeakPassword)

	// A rejected password does not consume the token.
	require.NoError(t, reset.Redeem(ctx, mailer.token(t), "battery staple"))
}
