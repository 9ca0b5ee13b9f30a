// Package config loads the application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// ProviderHosted selects the hosted identity service.
const ProviderHosted = "hosted"

// ProviderLocal selects the sqlite-backed identity provider.
const ProviderLocal = "local"

// Config holds every runtime setting for the app.
type Config struct {
	// HTTP
	Addr string `env:"CONTIQ_ADDR" envDefault:":3000"`

	// Identity provider selection: "hosted" or "local".
	Provider string `env:"CONTIQ_PROVIDER" envDefault:"local"`

	// Hosted identity service. Required when Provider is "hosted"; absence
	// is a fatal startup error.
	ProviderURL string `env:"CONTIQ_PROVIDER_URL"`
	ProviderKey string `env:"CONTIQ_PROVIDER_KEY"`

	// SigningSecret verifies access tokens; the local provider also signs
	// with it.
	SigningSecret string `env:"CONTIQ_SIGNING_SECRET,required"`

	// Persistence
	DatabaseDSN string `env:"CONTIQ_DATABASE_DSN" envDefault:"file:contiq.db?cache=shared"`

	// Generation webhook
	WebhookURL string `env:"CONTIQ_WEBHOOK_URL,required"`

	// Browser session cookie
	CookieName string        `env:"CONTIQ_COOKIE_NAME" envDefault:"contiq_sid"`
	SessionTTL time.Duration `env:"CONTIQ_SESSION_TTL" envDefault:"24h"`

	// Local provider behavior
	AutoConfirm bool `env:"CONTIQ_AUTO_CONFIRM" envDefault:"false"`
}

// Load reads .env (when present) and the environment, then validates the
// result. Errors here are fatal: the app cannot run half-configured.
func Load() (*Config, error) {
	// Missing .env is fine; the environment is the source of truth.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load configuration from environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces cross-field requirements that env tags cannot express.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderHosted:
		if strings.TrimSpace(c.ProviderURL) == "" {
			return goerrors.New("CONTIQ_PROVIDER_URL is required for the hosted provider", goerrors.CategoryBadInput)
		}
		if strings.TrimSpace(c.ProviderKey) == "" {
			return goerrors.New("CONTIQ_PROVIDER_KEY is required for the hosted provider", goerrors.CategoryBadInput)
		}
	case ProviderLocal:
	default:
		return goerrors.New("CONTIQ_PROVIDER must be \"hosted\" or \"local\"", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"provider": c.Provider})
	}

	if strings.TrimSpace(c.SigningSecret) == "" {
		return goerrors.New("CONTIQ_SIGNING_SECRET must not be blank", goerrors.CategoryBadInput)
	}

	return nil
}
