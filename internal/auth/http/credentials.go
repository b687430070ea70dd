package http

import (
	"encoding/json"
	"net/http"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// CredentialsHandler serves password registration and login.
type CredentialsHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse covers both login outcomes: a completed session with tokens,
// or a stop at the second-factor gate.
type loginResponse struct {
	UserID               string            `json:"user_id"`
	SecondFactorRequired bool              `json:"second_factor_required,omitempty"`
	Tokens               *domain.TokenPair `json:"tokens,omitempty"`
}

// HandleRegister handles POST /v1/auth/register.
func (h *CredentialsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeInvalidBody(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"email and password are required")
		return
	}

	res, err := h.AuthService.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toLoginResponse(res))
}

// HandleLogin handles POST /v1/auth/login.
func (h *CredentialsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeInvalidBody(w)
		return
	}

	res, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}

func toLoginResponse(res domain.LoginResult) loginResponse {
	return loginResponse{
		UserID:               res.UserID,
		SecondFactorRequired: res.SecondFactorRequired,
		Tokens:               res.Tokens,
	}
}
