package ngxauth

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/errors/v5"
	"github.com/sloonz/ngx-auth/oidc"
)

// Config is the process configuration, read from the environment.
type Config struct {
	// Listen is a TCP port number or a unix socket path.
	Listen string `env:"LISTEN,notEmpty"`
	// SocketPerms are octal permission bits applied to the unix socket
	// after binding. Empty leaves the umask-derived bits in place.
	SocketPerms string `env:"SOCKET_PERMS"`
	// CallbackOrigin is the external origin this gateway is reachable at;
	// login and callback URLs are built from it.
	CallbackOrigin string `env:"CALLBACK_ORIGIN,notEmpty"`

	// JWESecretKey is the base64url-encoded 256-bit key protecting the
	// state parameter.
	JWESecretKey string `env:"JWE_SECRET_KEY,notEmpty"`
	// BypassPublicKey is the base64url-encoded Ed25519 public key for
	// bypass tokens. Empty disables the bypass path.
	BypassPublicKey string `env:"BYPASS_PUBLIC_KEY"`

	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`

	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	CookieSecure    bool          `env:"COOKIE_SECURE"    envDefault:"true"`

	// Exactly one of DatabaseURL (postgres) and SpannerDatabase must be
	// set.
	DatabaseURL     string `env:"DATABASE_URL"`
	SpannerDatabase string `env:"SPANNER_DATABASE"`
}

// LoadConfig reads and validates the configuration from the environment.
func LoadConfig() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "env.Parse()")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	if (c.MicrosoftClientID == "") != (c.MicrosoftClientSecret == "") {
		return errors.New("MICROSOFT_CLIENT_ID and MICROSOFT_CLIENT_SECRET must be set together")
	}
	if c.GoogleClientID == "" && c.MicrosoftClientID == "" {
		return errors.New("at least one identity provider must be configured")
	}
	switch {
	case c.DatabaseURL == "" && c.SpannerDatabase == "":
		return errors.New("one of DATABASE_URL and SPANNER_DATABASE must be set")
	case c.DatabaseURL != "" && c.SpannerDatabase != "":
		return errors.New("DATABASE_URL and SPANNER_DATABASE are mutually exclusive")
	}

	return nil
}

// Providers returns the provider rows enabled by the configuration.
func (c *Config) Providers() []oidc.ProviderConfig {
	var providers []oidc.ProviderConfig
	if c.GoogleClientID != "" {
		providers = append(providers, oidc.Google(c.GoogleClientID, c.GoogleClientSecret))
	}
	if c.MicrosoftClientID != "" {
		providers = append(providers, oidc.Microsoft(c.MicrosoftClientID, c.MicrosoftClientSecret))
	}

	return providers
}
