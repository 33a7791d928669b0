package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-pos/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

var draining atomic.Bool

// SetReady toggles readiness; it is cleared during graceful shutdown so load
// balancers stop routing terminals here before the listener closes.
func SetReady(v bool) {
	draining.Store(!v)
}

// Check probes one dependency. Failures of optional checks degrade the report
// but do not fail readiness.
type Check struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Probe    func(ctx context.Context) error
}

// RedisCheck pings Redis, which backs the catalog cache and rate limits.
func RedisCheck(client redis.UniversalClient) Check {
	return Check{
		Name:    "redis",
		Timeout: 300 * time.Millisecond,
		Probe: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// Result is the outcome of one check.
type Result struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
	Optional  bool   `json:"optional,omitempty"`
}

// Report is the readiness body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks []Check
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes every check concurrently. It answers 503 while draining or
// when a required check fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	report := h.Evaluate(r.Context())
	status := http.StatusOK
	if report.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, report)
}

// Evaluate runs the checks and folds them into a Report.
func (h Handler) Evaluate(ctx context.Context) Report {
	results := make([]Result, len(h.Checks))
	var g errgroup.Group
	for i, c := range h.Checks {
		g.Go(func() error {
			start := time.Now()
			res := Result{Status: "ok", Optional: c.Optional}
			if err := run(ctx, c); err != nil {
				res.Status = "fail"
				res.Error = err.Error()
			}
			res.LatencyMS = time.Since(start).Milliseconds()
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: "ok", Checks: make(map[string]Result, len(results))}
	for i, c := range h.Checks {
		res := results[i]
		report.Checks[c.Name] = res
		if res.Status == "ok" {
			continue
		}
		if c.Optional {
			if report.Status == "ok" {
				report.Status = "degraded"
			}
			continue
		}
		report.Status = "unavailable"
	}
	if draining.Load() {
		report.Status = "unavailable"
		report.Checks["server"] = Result{Status: "draining"}
	}
	return report
}

func run(ctx context.Context, c Check) error {
	if c.Probe == nil {
		return nil
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Probe(ctx)
}
