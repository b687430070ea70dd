// Package http is the transport boundary of the identity core. Handlers
// decode requests, call services and translate the service error taxonomy to
// statuses; no business rule lives here.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/pkg/httpx"
	"github.com/aegisauth/aegis/pkg/jwtx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService  *service.AuthService
	TokenService *service.TokenService
	ResetService *service.ResetService
	Providers    map[domain.Provider]provider.Provider
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		Providers:    make(map[domain.Provider]provider.Provider),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerCredentials()
	r.registerTokens()
	r.registerSecondFactor()
	r.registerReset()
	r.registerOAuth()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /v1/auth/register", http.HandlerFunc(h.HandleRegister))
	r.Mux.Handle("POST /v1/auth/login", http.HandlerFunc(h.HandleLogin))
}

func (r *Router) registerTokens() {
	h := &TokenHandler{TokenService: r.TokenService}

	r.Mux.Handle("POST /v1/auth/refresh", http.HandlerFunc(h.HandleRefresh))
}

func (r *Router) registerSecondFactor() {
	h := &SecondFactorHandler{AuthService: r.AuthService}

	// Setup requires a signed-in caller; verify is reachable mid-login,
	// where the caller holds no access token yet.
	securedSetup := httpx.Chain(http.HandlerFunc(h.HandleSetup),
		httpx.AuthnMiddleware(r.verifier),
	)

	r.Mux.Handle("POST /v1/auth/2fa/setup", securedSetup)
	r.Mux.Handle("POST /v1/auth/2fa/verify", http.HandlerFunc(h.HandleVerify))
}

func (r *Router) registerReset() {
	h := &ResetHandler{ResetService: r.ResetService}

	r.Mux.Handle("POST /v1/auth/forgot-password", http.HandlerFunc(h.HandleForgot))
	r.Mux.Handle("POST /v1/auth/reset-password", http.HandlerFunc(h.HandleReset))
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{
		AuthService: r.AuthService,
		Providers:   r.Providers,
	}

	r.Mux.Handle("GET /v1/auth/{provider}/start", http.HandlerFunc(h.HandleStart))
	r.Mux.Handle("GET /v1/auth/{provider}/callback", http.HandlerFunc(h.HandleCallback))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
