package app

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, parsed from the environment.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// PublicBaseURL is the externally reachable origin, used to build the
	// links that leave the service (password reset).
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	Issuer string `env:"AUTH_ISSUER" envDefault:"aegis"`

	// SigningSecret is the symmetric JWT key, at least 32 bytes.
	SigningSecret string `env:"AUTH_SIGNING_SECRET,required"`

	AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	ResetTTL   time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`

	// StoreDriver selects the backing database: "sqlite" or "postgres".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	StoreDSN    string `env:"STORE_DSN" envDefault:"auth.db"`

	Google OAuthConfig `envPrefix:"GOOGLE_"`
	GitHub OAuthConfig `envPrefix:"GITHUB_"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// OAuthConfig is one provider's client registration. A provider with no
// client id is simply not routed.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// SMTPConfig configures outbound mail. With no host set, reset links are
// logged instead of mailed (dev mode).
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"noreply@localhost"`
}

// LoadConfig parses the process environment into a Config.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
