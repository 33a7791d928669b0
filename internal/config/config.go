package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	DatabaseURL        string
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	BackofficeBaseURL      string
	BackofficeTimeout      time.Duration
	BackofficeReadAttempts int
	CheckoutTimeout        time.Duration
	StoreID                string
	TenantHeader           string
	DefaultTenant          string
	TenantRootDomain       string

	SessionSecret        string
	SessionIssuer        string
	SessionAudience      string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	CatalogCacheTTL time.Duration
	LockTTL         time.Duration
	LockRetry       time.Duration

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
	CircuitInterval     time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration
	APIRateLimit    string
	IdempotencyTTL  time.Duration

	JournalEnabled    bool
	JournalQueue      string
	WorkerConcurrency int

	LogFormat          string
	LogLevel           string
	MetricsNamespace   string
	MetricsBuckets     string
	TracingEnabled     bool
	TracingEndpoint    string
	TracingSampleRatio float64
	PprofEnabled       bool
}

// Load reads the gateway configuration from environment variables and
// optional .env files.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.BackofficeBaseURL == "" {
		return nil, errors.New("BACKOFFICE_BASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 16 {
		return nil, errors.New("SESSION_SECRET must be at least 16 characters")
	}
	return cfg, nil
}

// LoadWorker reads the journal worker configuration. Only REDIS_URL and
// DATABASE_URL are required.
func LoadWorker() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		DatabaseURL:        k.String("DATABASE_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		BackofficeBaseURL:      strings.TrimSpace(k.String("BACKOFFICE_BASE_URL")),
		BackofficeTimeout:      parseDuration(k.String("BACKOFFICE_TIMEOUT"), "10s"),
		BackofficeReadAttempts: parseInt(k.String("BACKOFFICE_READ_ATTEMPTS"), 1),
		CheckoutTimeout:        parseDuration(k.String("CHECKOUT_TIMEOUT"), "20s"),
		StoreID:                strings.TrimSpace(k.String("STORE_ID")),
		TenantHeader:           valueOrDefault(k.String("TENANT_HEADER"), "X-Tenant-ID"),
		DefaultTenant:          strings.TrimSpace(k.String("DEFAULT_TENANT")),
		TenantRootDomain:       strings.TrimSpace(k.String("TENANT_ROOT_DOMAIN")),

		SessionSecret:        k.String("SESSION_SECRET"),
		SessionIssuer:        valueOrDefault(k.String("SESSION_ISSUER"), "toko-pos"),
		SessionAudience:      valueOrDefault(k.String("SESSION_AUDIENCE"), "pos-terminal"),
		SessionTTL:           parseDuration(k.String("SESSION_TTL"), "12h"),
		SessionSweepInterval: parseDuration(k.String("SESSION_SWEEP_INTERVAL"), "1m"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		LockTTL:         parseDuration(k.String("LOCK_TTL"), "15s"),
		LockRetry:       parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),

		CircuitMinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		CircuitInterval:     parseDuration(k.String("CIRCUIT_INTERVAL"), "1m"),

		LoginRateLimit:  parseInt(k.String("LOGIN_RATE_LIMIT"), 10),
		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),
		APIRateLimit:    valueOrDefault(k.String("API_RATE_LIMIT"), "600-M"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		JournalEnabled:    parseBoolDefault(k.String("JOURNAL_ENABLED"), true),
		JournalQueue:      valueOrDefault(k.String("JOURNAL_QUEUE"), "journal"),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),

		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pos"),
		MetricsBuckets:     k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:     parseBool(k.String("OBS_TRACING_ENABLED")),
		TracingEndpoint:    k.String("OBS_TRACING_ENDPOINT"),
		TracingSampleRatio: parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 1),
		PprofEnabled:       parseBool(k.String("PPROF_ENABLED")),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

// RequireDatabase reports an error when the journal database is not configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "0", "false", "no", "off":
		return false
	default:
		return parseBool(value)
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
