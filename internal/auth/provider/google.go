package provider

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/aegisauth/aegis/internal/auth/domain"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google exchanges authorization codes against Google's OAuth endpoints and
// reads the userinfo profile.
type Google struct {
	oauth  *oauth2.Config
	client *http.Client

	// UserInfoURL is overridable for tests.
	UserInfoURL string
}

func NewGoogle(cfg Config) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		client:      newHTTPClient(),
		UserInfoURL: googleUserInfoURL,
	}
}

func (g *Google) Name() domain.Provider { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *Google) Exchange(ctx context.Context, code string) (domain.FederatedProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(ctx, g.client, g.UserInfoURL, tok.AccessToken, &info); err != nil {
		return domain.FederatedProfile{}, err
	}
	if info.ID == "" {
		return domain.FederatedProfile{}, fmt.Errorf("%w: empty subject", ErrProviderUnavailable)
	}

	return domain.FederatedProfile{
		Provider:    domain.ProviderGoogle,
		ProviderID:  info.ID,
		Email:       info.Email,
		Name:        info.Name,
		AccessToken: tok.AccessToken,
	}, nil
}
