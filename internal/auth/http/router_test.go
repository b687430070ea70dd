package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegisauth/aegis/internal/auth/service"
	"github.com/aegisauth/aegis/internal/auth/store/drivers/sqlite"
	"github.com/aegisauth/aegis/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type nullMailer struct{}

func (nullMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error { return nil }

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hs, err := jwtx.NewHS256([]byte(testSecret), "aegis-test")
	require.NoError(t, err)

	tokens := service.NewTokenService(hs, hs, st, "aegis-test")
	auth := service.NewAuthService(st, tokens,
		service.NewTOTPService("aegis-test"),
		service.NewIdentityService(st), logger)

	r := NewRouter(hs, "test", st, logger)
	r.AuthService = auth
	r.TokenService = tokens
	r.ResetService = service.NewResetService(st, nullMailer{}, logger, "https://auth.example.com")
	r.ApplyRoutes()
	return r
}

func doJSON(t *testing.T, r *Router, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func registerUser(t *testing.T, r *Router, email, password string) loginResponse {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", registerRequest{
		Email:    email,
		Password: password,
		Name:     "Test User",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[loginResponse](t, rec)
}
