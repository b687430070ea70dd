package service

import "errors"

// The service error taxonomy. Handlers map these onto HTTP statuses; the
// store's raw errors never cross the service boundary.
var (
	// ErrInvalidCredentials covers both unknown-email and wrong-password so
	// a caller cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken reports a registration against an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword reports a password under the accepted length floor.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidCode reports a TOTP code that does not match the stored
	// secret within the accepted clock skew.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrSecondFactorNotStarted reports a verification attempt before any
	// enrollment secret exists for the subject.
	ErrSecondFactorNotStarted = errors.New("second factor enrollment not started")

	// ErrInvalidRefreshToken covers bad signatures, expiry and tokens that
	// were already rotated past. Indistinguishable on purpose.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidOrExpiredToken reports a reset token that is unknown,
	// expired or already redeemed.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrConflictRetryable reports a write lost to a concurrent racer
	// (duplicate registration, first federated login). The operation is
	// safe to retry.
	ErrConflictRetryable = errors.New("conflicting concurrent write, retry")

	// ErrStoreUnavailable wraps backend failures that are not the caller's
	// fault.
	ErrStoreUnavailable = errors.New("store unavailable")
)
