package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ALLOWED_ORIGINS", "LOG_MODE", "APP_TIMEZONE", "RECURRING_SWEEP_INTERVAL", "REDIS_CHANNEL", "R2_BUCKET_NAME"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "development", cfg.LogMode)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, "rewards", cfg.RedisChannel)
	assert.False(t, cfg.BackupEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example ")
	t.Setenv("APP_TIMEZONE", "Europe/Berlin")
	t.Setenv("RECURRING_SWEEP_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("RECURRING_SWEEP_INTERVAL", "soon")
	_, err = Load()
	assert.Error(t, err)
}

func TestRequireServe(t *testing.T) {
	assert.Error(t, Config{}.RequireServe())
	assert.Error(t, Config{DatabaseURL: "postgres://x"}.RequireServe())
	assert.NoError(t, Config{DatabaseURL: "postgres://x", ServiceToken: "t"}.RequireServe())
}
