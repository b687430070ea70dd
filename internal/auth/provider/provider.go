// Package provider implements the outbound OAuth collaborators: the
// authorization-code exchange and profile lookup for each supported
// federated login provider.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
)

var (
	// ErrProviderUnavailable reports a transport or upstream failure while
	// talking to a provider. Retryable by the caller; never carries
	// upstream response bodies.
	ErrProviderUnavailable = errors.New("provider: unavailable")

	// ErrNoVerifiedEmail reports that the provider account has no verified
	// email to key an identity on.
	ErrNoVerifiedEmail = errors.New("provider: no verified email")
)

// Provider is a federated login provider the orchestrator can send users to
// and exchange callback codes with.
type Provider interface {
	Name() domain.Provider

	// AuthCodeURL builds the consent-screen redirect URL for a state value.
	AuthCodeURL(state string) string

	// Exchange redeems an authorization code for a normalized profile.
	// Email may be empty when the provider withholds it from the profile
	// payload; the returned access token then allows a follow-up lookup.
	Exchange(ctx context.Context, code string) (domain.FederatedProfile, error)
}

// Config carries the per-provider OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the provider has a usable registration.
func (c Config) Configured() bool { return c.ClientID != "" && c.ClientSecret != "" }

const requestTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	// The timeout bounds the whole outbound call so a stalled provider
	// surfaces as ErrProviderUnavailable instead of hanging the login.
	return &http.Client{Timeout: requestTimeout}
}

// getJSON performs an authenticated GET against a provider API and decodes
// the JSON response into out.
func getJSON(ctx context.Context, client *http.Client, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}
