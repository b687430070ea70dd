package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	userID := mustRegister(t, auth, "Alice@Example.com", "correct horse")

	// Email is stored case-folded and logins match case-insensitively.
	u, err := st.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, userID, u.ID)

	res, err := auth.Login(ctx, "ALICE@example.COM", "correct horse")
	require.NoError(t, err)
	require.Equal(t, userID, res.UserID)
	require.NotNil(t, res.Tokens)
	require.Equal(t, "Bearer", res.Tokens.TokenType)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")

	_, err := auth.Register(ctx, "alice@example.com", "another pass", "Imposter")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterWeakPassword(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, err := auth.Register(context.Background(), "alice@example.com", "short", "Alice")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestLoginRejections(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	mustRegister(t, auth, "alice@example.com", "correct horse")

	_, err := auth.Login(ctx, "alice@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email fails identically to a wrong password.
	_, err = auth.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSecondFactorEnrollmentAndGate(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	userID := mustRegister(t, auth, "alice@example.com", "correct horse")

	enrollment, err := auth.Setup2FA(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URI, "otpauth://totp/")

	// The candidate secret alone does not gate logins.
	res, err := auth.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.False(t, res.SecondFactorRequired)

	// A bad code neither enables the factor nor issues tokens.
	_, err = auth.Verify2FA(ctx, userID, "000000")
	require.ErrorIs(t, err, ErrInvalidCode)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	pair, err := auth.Verify2FA(ctx, userID, code)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	u, err := st.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	require.True(t, u.SecondFactorEnabled())

	// With the factor enabled, login stops at the gate without tokens.
	res, err = auth.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.True(t, res.SecondFactorRequired)
	require.Nil(t, res.Tokens)
	require.Equal(t, userID, res.UserID)

	// A valid code completes the login.
	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	pair, err = auth.Verify2FA(ctx, res.UserID, code)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestVerify2FAWithoutEnrollment(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	userID := mustRegister(t, auth, "alice@example.com", "correct horse")

	_, err := auth.Verify2FA(ctx, userID, "123456")
	require.ErrorIs(t, err, ErrSecondFactorNotStarted)
}
