package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/aegisauth/aegis/internal/auth/domain"
)

const githubAPIBase = "https://api.github.com"

// GitHub exchanges authorization codes against GitHub's OAuth endpoints and
// reads the user profile. GitHub may hide the account email from the profile
// payload, so PrimaryVerifiedEmail offers a second lookup against the emails
// endpoint.
type GitHub struct {
	oauth  *oauth2.Config
	client *http.Client

	// APIBase is overridable for tests.
	APIBase string
}

func NewGitHub(cfg Config) *GitHub {
	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user", "user:email"},
		},
		client:  newHTTPClient(),
		APIBase: githubAPIBase,
	}
}

func (g *GitHub) Name() domain.Provider { return domain.ProviderGitHub }

func (g *GitHub) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *GitHub) Exchange(ctx context.Context, code string) (domain.FederatedProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var info struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, g.client, g.APIBase+"/user", tok.AccessToken, &info); err != nil {
		return domain.FederatedProfile{}, err
	}
	if info.ID == 0 {
		return domain.FederatedProfile{}, fmt.Errorf("%w: empty subject", ErrProviderUnavailable)
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}

	return domain.FederatedProfile{
		Provider:    domain.ProviderGitHub,
		ProviderID:  strconv.FormatInt(info.ID, 10),
		Email:       info.Email,
		Name:        name,
		AccessToken: tok.AccessToken,
	}, nil
}

// PrimaryVerifiedEmail resolves the account email when the profile payload
// omits it. Only a primary, verified address qualifies; anything else is
// ErrNoVerifiedEmail.
func (g *GitHub) PrimaryVerifiedEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, g.client, g.APIBase+"/user/emails", accessToken, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", ErrNoVerifiedEmail
}
