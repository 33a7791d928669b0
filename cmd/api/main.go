package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/health"
	"github.com/noah-isme/toko-pos/internal/journal"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pos"
	"github.com/noah-isme/toko-pos/internal/ratelimit"
	"github.com/noah-isme/toko-pos/internal/resilience"
	"github.com/noah-isme/toko-pos/internal/security"
	"github.com/noah-isme/toko-pos/internal/session"
	"github.com/noah-isme/toko-pos/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		logger.Error().Err(err).Msg("register breaker metrics")
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "toko-pos-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampleRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:       "backoffice",
		MinRequests:  cfg.CircuitMinRequests,
		FailureRatio: cfg.CircuitFailureRatio,
		OpenFor:      cfg.CircuitOpenFor,
		Interval:     cfg.CircuitInterval,
		Logger:       logger,
	})
	backofficeClient, err := backoffice.New(backoffice.Config{
		BaseURL:      cfg.BackofficeBaseURL,
		Timeout:      cfg.BackofficeTimeout,
		Breaker:      breaker,
		ReadAttempts: cfg.BackofficeReadAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise back-office client")
	}

	loader := catalog.NewLoader(
		backofficeClient,
		catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		&lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetry, MaxWait: cfg.LockTTL},
		logger.With().Str("component", "catalog").Logger(),
	)
	loader.LockTTL = cfg.LockTTL

	tokens, err := session.NewTokens(session.TokenConfig{
		Secret:    cfg.SessionSecret,
		Issuer:    cfg.SessionIssuer,
		Audience:  cfg.SessionAudience,
		TTL:       cfg.SessionTTL,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session tokens")
	}
	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx, cfg.SessionSweepInterval, logger)

	checkoutSvc := &checkout.Service{
		Orders:  backofficeClient,
		StoreID: cfg.StoreID,
		Timeout: cfg.CheckoutTimeout,
		Logger:  logger.With().Str("component", "checkout").Logger(),
	}
	if cfg.JournalEnabled {
		queueClient, err := newQueueClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise journal queue")
		}
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close journal queue")
			}
		}()
		checkoutSvc.Journal = journal.Publisher{Client: queueClient, Queue: cfg.JournalQueue}
	}

	apiStore, err := ratelimit.NewRedisStore(redisClient, "pos:api-limit")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise api rate limit store")
	}
	apiLimit, err := ratelimit.API(apiStore, cfg.APIRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise api rate limit")
	}
	loginLimit := ratelimit.Guard{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "pos:login-limit"},
		Key:     ratelimit.LoginKey(cfg.TenantHeader),
		Window:  cfg.LoginRateWindow,
		Max:     cfg.LoginRateLimit,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("login rate limiter unavailable")
		},
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	handler := &pos.Handler{
		Backoffice: backofficeClient,
		Loader:     loader,
		Sessions:   sessions,
		Tokens:     tokens,
		Orders:     checkoutSvc,
		Tenants:    tenant.NewResolver(cfg.TenantHeader, cfg.TenantRootDomain, cfg.DefaultTenant),
		Logger:     logger,
	}

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.Tracing("toko-pos-api"))
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger, Quiet: []string{"/health", "/metrics"}}.Middleware)
	r.Use(security.Headers{HSTS: cfg.IsProduction(), TrustForwardedProto: true}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins, cfg.TenantHeader))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	if cfg.PprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{Checks: []health.Check{
		health.RedisCheck(redisClient),
		{Name: "backoffice", Timeout: 2 * time.Second, Optional: true, Probe: backofficeClient.Ping},
		{Name: "backoffice_breaker", Optional: true, Probe: breaker.Check},
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	handler.Routes(r, pos.Middlewares{
		Login:    loginLimit.Middleware,
		API:      apiLimit,
		Checkout: idem.Middleware,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("backoffice", cfg.BackofficeBaseURL).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	// leave room for an in-flight checkout to reach the order service
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CheckoutTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func newQueueClient(cfg *config.Config) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
