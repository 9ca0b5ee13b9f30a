package config_test

import (
	"testing"

	"github.com/contiq/contiq/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONTIQ_SIGNING_SECRET", "test-secret")
	t.Setenv("CONTIQ_WEBHOOK_URL", "https://hooks.example.com/generate")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, config.ProviderLocal, cfg.Provider)
	assert.Equal(t, "contiq_sid", cfg.CookieName)
	assert.Equal(t, "24h0m0s", cfg.SessionTTL.String())
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	t.Setenv("CONTIQ_WEBHOOK_URL", "https://hooks.example.com/generate")
	t.Setenv("CONTIQ_SIGNING_SECRET", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestHostedProviderRequiresURLAndKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONTIQ_PROVIDER", "hosted")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("CONTIQ_PROVIDER_URL", "https://id.example.com")
	_, err = config.Load()
	require.Error(t, err)

	t.Setenv("CONTIQ_PROVIDER_KEY", "pk-live")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ProviderHosted, cfg.Provider)
}

func TestUnknownProviderRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONTIQ_PROVIDER", "ldap")

	_, err := config.Load()
	assert.Error(t, err)
}
