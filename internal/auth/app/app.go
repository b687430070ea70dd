// Package app wires configuration, storage, services and transport into a
// runnable process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	httpapi "github.com/aegisauth/aegis/internal/auth/http"
	"github.com/aegisauth/aegis/internal/auth/mailer"
	"github.com/aegisauth/aegis/internal/auth/provider"
	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/aegisauth/aegis/internal/auth/store/drivers/postgres"
	"github.com/aegisauth/aegis/internal/auth/store/drivers/sqlite"
	"github.com/aegisauth/aegis/pkg/jwtx"
	"github.com/aegisauth/aegis/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.HS256

	tokenService    *service.TokenService
	totpService     *service.TOTPService
	identityService *service.IdentityService
	authService     *service.AuthService
	resetService    *service.ResetService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "aegis",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	signer, err := jwtx.NewHS256([]byte(cfg.SigningSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the HTTP server and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", app.cfg.StoreDSN)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		app.db = db

	case "postgres":
		db, err := postgres.NewStore(context.Background(), app.cfg.StoreDSN)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		app.db = db

	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initServices() error {
	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Verifier:   app.signer,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.totpService = service.NewTOTPService(app.cfg.Issuer)
	app.identityService = service.NewIdentityService(app.db)

	app.authService = service.NewAuthService(
		app.db,
		app.tokenService,
		app.totpService,
		app.identityService,
		app.logger,
	)

	resetMailer, err := app.initMailer()
	if err != nil {
		return err
	}
	app.resetService = service.NewResetService(app.db, resetMailer, app.logger, app.cfg.PublicBaseURL)
	app.resetService.TokenTTL = app.cfg.ResetTTL

	return nil
}

func (app *Application) initMailer() (service.ResetMailer, error) {
	if app.cfg.SMTP.Host == "" {
		app.logger.Warn("no SMTP host configured, reset links will be logged instead of mailed")
		return logMailer{logger: app.logger}, nil
	}

	m, err := mailer.New(mailer.Config{
		Host:     app.cfg.SMTP.Host,
		Port:     app.cfg.SMTP.Port,
		Username: app.cfg.SMTP.Username,
		Password: app.cfg.SMTP.Password,
		From:     app.cfg.SMTP.From,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	return m, nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.ResetService = app.resetService

	if app.cfg.Google.ClientID != "" {
		router.Providers[domain.ProviderGoogle] = provider.NewGoogle(provider.Config{
			ClientID:     app.cfg.Google.ClientID,
			ClientSecret: app.cfg.Google.ClientSecret,
			RedirectURL:  app.cfg.Google.RedirectURL,
		})
	}
	if app.cfg.GitHub.ClientID != "" {
		gh := provider.NewGitHub(provider.Config{
			ClientID:     app.cfg.GitHub.ClientID,
			ClientSecret: app.cfg.GitHub.ClientSecret,
			RedirectURL:  app.cfg.GitHub.RedirectURL,
		})
		router.Providers[domain.ProviderGitHub] = gh
		app.identityService.EmailSources[domain.ProviderGitHub] = gh
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// logMailer stands in for SMTP in development: the reset link lands in the
// log instead of an inbox.
type logMailer struct {
	logger *slog.Logger
}

func (m logMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.logger.InfoContext(ctx, "password reset link (mail disabled)",
		slog.String("to", to),
		slog.String("url", resetURL),
	)
	return nil
}
