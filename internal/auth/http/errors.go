package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses and
// the standard error envelope. Anything unmapped is a 500 with no detail.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	log := slogx.FromContext(ctx)

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials",
			"Email or password is incorrect")

	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken",
			"An account with this email already exists")

	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "weak_password",
			"Password does not meet the minimum length")

	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_code",
			"Verification code is incorrect")

	case errors.Is(err, service.ErrSecondFactorNotStarted):
		httpx.WriteError(w, http.StatusBadRequest, "enrollment_not_started",
			"Second factor setup has not been started")

	case errors.Is(err, service.ErrInvalidRefreshToken):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant",
			"Refresh token is invalid or has been superseded")

	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_token",
			"Reset token is invalid or has expired")

	case errors.Is(err, service.ErrConflictRetryable):
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"A concurrent request beat this one, retry")

	case errors.Is(err, provider.ErrNoVerifiedEmail):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "no_verified_email",
			"The provider account has no verified email address")

	case errors.Is(err, provider.ErrProviderUnavailable):
		log.Error("provider unavailable", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "provider_unavailable",
			"The login provider could not be reached")

	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error("store unavailable", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "store_unavailable",
			"The service is temporarily unavailable, retry shortly")

	default:
		log.Error("unhandled service error", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error",
			"Something went wrong")
	}
}

func writeInvalidBody(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
}
