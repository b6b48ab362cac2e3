package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_API_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "http://backend.test/api")
	t.Setenv("OTP_COOLDOWN_SECONDS", "")
	t.Setenv("SESSION_TTL_HOURS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend.test/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 600*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, 72*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_API_URL", "http://backend.test/api")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OTP_COOLDOWN_SECONDS", "30")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.OTP.Cooldown)
	assert.True(t, cfg.Session.Secure)
	assert.True(t, cfg.Database.Enabled())
}
