package domain

// TokenPair is what a completed authentication returns: the short-lived
// access token (JWT) and the rotating refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access token lifetime, seconds
}

// LoginResult is the outcome of a credential or federated login. Either the
// attempt is fully authenticated and carries tokens, or it stopped at the
// second-factor gate and carries only the pending subject id.
type LoginResult struct {
	UserID               string
	SecondFactorRequired bool
	Tokens               *TokenPair // nil when SecondFactorRequired
}
