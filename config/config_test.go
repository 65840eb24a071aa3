package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)
	assert.Equal(t, 10000, cfg.Audit.MaxEntries)
	assert.Equal(t, "db", cfg.Audit.Store)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 30, cfg.Billing.PaymentTermDays)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("AUDIT_STORE", "file")
	t.Setenv("AUDIT_MAX_ENTRIES", "50")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DEFAULT_TAX_RATE", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Audit.Store)
	assert.Equal(t, 50, cfg.Audit.MaxEntries)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimitWindow)
	assert.Equal(t, 7.0, cfg.Billing.DefaultTaxRate)
	assert.Contains(t, cfg.Database.DSN(), "host=localhost")
	assert.Contains(t, cfg.Database.DSN(), "dbname=shop")
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownAuditStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AUDIT_STORE", "redis")
	_, err := Load()
	assert.Error(t, err)
}
