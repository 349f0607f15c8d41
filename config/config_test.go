package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", StoreMemory)
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Billing.RevisionCost)
	assert.Equal(t, 20, cfg.Billing.DefaultCredits)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Limits.LockTTL)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE", StoreMemory)
	t.Setenv("REVISION_COST", "7")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOCK_TTL", "90s")
	t.Setenv("AUTH_ALLOW_HEADER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Billing.RevisionCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Limits.LockTTL)
	assert.True(t, cfg.App.AllowHeaderAuth)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown store", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: "3000"}, App: AppConfig{Store: "sqlite"}, Billing: BillingConfig{RevisionCost: 5}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive revision cost", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: "3000"}, App: AppConfig{Store: StoreMemory}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("llm timeout must be shorter than the lock ttl", func(t *testing.T) {
		cfg := &Config{
			Server:  ServerConfig{Port: "3000"},
			App:     AppConfig{Store: StoreMemory},
			Billing: BillingConfig{RevisionCost: 5},
			LLM:     LLMConfig{Timeout: 5 * time.Minute},
			Limits:  LimitsConfig{LockTTL: 5 * time.Minute},
		}
		assert.Error(t, cfg.Validate())

		cfg.LLM.Timeout = time.Minute
		assert.NoError(t, cfg.Validate())
	})

	t.Run("production needs firebase and llm credentials", func(t *testing.T) {
		cfg := &Config{
			Server:  ServerConfig{Port: "3000"},
			App:     AppConfig{Store: StoreMemory, Environment: "production"},
			Billing: BillingConfig{RevisionCost: 5},
		}
		assert.Error(t, cfg.Validate())

		cfg.Firebase.CredentialsPath = "/etc/firebase.json"
		cfg.LLM.APIKey = "sk-test"
		assert.NoError(t, cfg.Validate())
	})
}
