package http

import (
	"encoding/json"
	"net/http"

	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// SecondFactorHandler serves TOTP enrollment and verification.
type SecondFactorHandler struct {
	AuthService *service.AuthService
}

type totpSetupResponse struct {
	Secret  string `json:"secret"`
	URI     string `json:"uri"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

type totpVerifyRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// HandleSetup handles POST /v1/auth/2fa/setup. The caller must present a
// valid access token; the fresh secret stays inert until a code verifies.
func (h *SecondFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token",
			"Authentication required")
		return
	}

	enrollment, err := h.AuthService.Setup2FA(ctx, userID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, totpSetupResponse{
		Secret:  enrollment.Secret,
		URI:     enrollment.URI,
		Issuer:  enrollment.Issuer,
		Account: enrollment.Account,
	})
}

// HandleVerify handles POST /v1/auth/2fa/verify. It completes either an
// enrollment or a login stopped at the second-factor gate; the subject id
// comes from the body because mid-login callers hold no access token.
func (h *SecondFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req totpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeInvalidBody(w)
		return
	}
	if req.UserID == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"user_id and code are required")
		return
	}

	pair, err := h.AuthService.Verify2FA(ctx, req.UserID, req.Code)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}
