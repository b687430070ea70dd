package http

import (
	"net/http"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/pkg/cryptox"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 600 // seconds; the consent screen round trip
)

// OAuthHandler serves the federated login start/callback pair. State is a
// random value pinned in a short-lived cookie so a forged callback cannot
// complete someone else's login.
type OAuthHandler struct {
	AuthService *service.AuthService
	Providers   map[domain.Provider]provider.Provider
}

func (h *OAuthHandler) provider(r *http.Request) (provider.Provider, bool) {
	p, ok := h.Providers[domain.Provider(r.PathValue("provider"))]
	return p, ok
}

// HandleStart handles GET /v1/auth/{provider}/start.
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider",
			"This login provider is not configured")
		return
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/v1/auth",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback handles GET /v1/auth/{provider}/callback.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := h.provider(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "unknown_provider",
			"This login provider is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		log.Warn("oauth state mismatch", "provider", p.Name())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_state",
			"Login flow state did not match, restart the login")
		return
	}

	// The state is spent either way; drop the cookie.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"Missing authorization code")
		return
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	res, err := h.AuthService.FederatedLogin(ctx, profile)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toLoginResponse(res))
}
