package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "http://127.0.0.1:8000/api/v1", cfg.APIBaseURL)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, 10*time.Minute, cfg.LocationCacheTTL)
	require.Equal(t, 4, cfg.LocationFetchConcurrency)
	require.Equal(t, "@every 15m", cfg.LocationsWarmupCron)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.HasServiceAccount())
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "csrf")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_TIMEZONE", "Asia/Jakarta")
	t.Setenv("API_SERVICE_EMAIL", "worker@example.com")
	t.Setenv("API_SERVICE_PASSWORD", "pw")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.HasServiceAccount())
	require.Equal(t, 30, cfg.RateLimitPerMinute)
	require.Equal(t, "Asia/Jakarta", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{AppTimezone: "Mars/Olympus"}
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadOpsConfigSkipsWebSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("API_BASE_URL", "https://erp.example.com/api/v1")

	cfg, err := LoadOpsConfig()
	require.NoError(t, err)
	require.Equal(t, "https://erp.example.com/api/v1", cfg.APIBaseURL)
}
