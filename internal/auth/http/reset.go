package http

import (
	"encoding/json"
	"net/http"

	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// ResetHandler serves the forgot/reset password pair.
type ResetHandler struct {
	ResetService *service.ResetService
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleForgot handles POST /v1/auth/forgot-password. The response is the
// same whether or not the email has an account.
func (h *ResetHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeInvalidBody(w)
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"email is required")
		return
	}

	if err := h.ResetService.Forgot(ctx, req.Email); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If an account exists for this email, a reset link has been sent",
	})
}

// HandleReset handles POST /v1/auth/reset-password.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeInvalidBody(w)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"token and new_password are required")
		return
	}

	if err := h.ResetService.Redeem(ctx, req.Token, req.NewPassword); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated, sign in with the new password",
	})
}
