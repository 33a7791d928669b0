package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":           "redis://localhost:6379/0",
		"BACKOFFICE_BASE_URL": "https://backoffice.example.com",
		"SESSION_SECRET":      "0123456789abcdef",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := baseEnv()
	env["CHECKOUT_TIMEOUT"] = ""
	env["JOURNAL_ENABLED"] = ""
	env["API_RATE_LIMIT"] = ""
	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, 20*time.Second, cfg.CheckoutTimeout)
	require.True(t, cfg.JournalEnabled)
	require.Equal(t, "600-M", cfg.APIRateLimit)
	require.Equal(t, "X-Tenant-ID", cfg.TenantHeader)
	require.Error(t, cfg.RequireDatabase())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["SESSION_TTL"] = "2h"
	env["CIRCUIT_FAILURE_RATIO"] = "0.25"
	env["JOURNAL_ENABLED"] = "off"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	env["DATABASE_URL"] = "postgres://pos@localhost/pos"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.InDelta(t, 0.25, cfg.CircuitFailureRatio, 1e-9)
	require.False(t, cfg.JournalEnabled)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.RequireDatabase())
}

func TestLoadRequiresSettings(t *testing.T) {
	for _, key := range []string{"REDIS_URL", "BACKOFFICE_BASE_URL", "SESSION_SECRET"} {
		env := baseEnv()
		env[key] = ""
		_, err := LoadForTests(env)
		require.Error(t, err, key)
	}

	env := baseEnv()
	env["SESSION_SECRET"] = "short"
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	require.Equal(t, 5*time.Second, parseDuration("bogus", "5s"))
	require.Equal(t, 7, parseInt("x", 7))
	require.Equal(t, 3, parseInt(" 3 ", 7))
	require.True(t, parseBoolDefault("", true))
	require.False(t, parseBoolDefault("no", true))
	require.True(t, parseBoolDefault("yes", false))
}

func TestLoadWorkerNeedsOnlyRedisAndDatabase(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BACKOFFICE_BASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	_, err := LoadWorker()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://pos@localhost/pos")
	t.Setenv("WORKER_CONCURRENCY", "8")
	cfg, err := LoadWorker()
	require.NoError(t, err)
	require.Equal(t, 8, cfg.WorkerConcurrency)
	require.Equal(t, "journal", cfg.JournalQueue)
}
