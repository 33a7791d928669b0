package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen admits one probe at a time to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero values fall back to defaults.
type BreakerConfig struct {
	// Target labels metrics and logs, e.g. "backoffice".
	Target string
	// MinRequests outcomes must be seen in the current interval before the
	// failure ratio is evaluated.
	MinRequests  int
	FailureRatio float64
	// OpenFor is the cool-off before a half-open probe is admitted.
	OpenFor time.Duration
	// Interval is the length of the closed-state counting window.
	Interval time.Duration
	Logger   zerolog.Logger
}

// Counts is a snapshot of the closed-state window.
type Counts struct {
	Requests  int
	Failures  int
	OpenUntil time.Time
}

// Breaker implements a failure-ratio circuit breaker guarding one upstream.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu          sync.Mutex
	state       State
	requests    int
	failures    int
	windowStart time.Time
	openedAt    time.Time
	probing     bool
}

// NewBreaker builds a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 1
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	b := &Breaker{cfg: cfg, now: time.Now}
	b.windowStart = b.now()
	BreakerState.WithLabelValues(cfg.Target).Set(stateGaugeValue(Closed))
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns the current window counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := Counts{Requests: b.requests, Failures: b.failures}
	if b.state == Open {
		c.OpenUntil = b.openedAt.Add(b.cfg.OpenFor)
	}
	return c
}

// Check returns ErrOpenCircuit while the breaker is open. It suits a
// readiness probe and does not consume the half-open probe.
func (b *Breaker) Check(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Before(b.openedAt.Add(b.cfg.OpenFor)) {
		return fmt.Errorf("%w: %s", ErrOpenCircuit, b.cfg.Target)
	}
	return nil
}

// Allow reports whether a request may proceed. Every true result must be
// followed by exactly one Report.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.OpenFor {
			BreakerRejectedTotal.WithLabelValues(b.cfg.Target).Inc()
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			BreakerRejectedTotal.WithLabelValues(b.cfg.Target).Inc()
			return false
		}
		b.probing = true
		return true
	default:
		if b.now().Sub(b.windowStart) >= b.cfg.Interval {
			b.resetWindowLocked()
		}
		return true
	}
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.requests++
	if !success {
		b.failures++
	}
	if b.requests < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(b.requests) >= b.cfg.FailureRatio {
		b.transitionLocked(ctx, Open)
	}
}

func (b *Breaker) resetWindowLocked() {
	b.requests = 0
	b.failures = 0
	b.windowStart = b.now()
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	if next == Open {
		b.openedAt = b.now()
	}
	b.resetWindowLocked()

	target := b.cfg.Target
	BreakerState.WithLabelValues(target).Set(stateGaugeValue(next))
	BreakerTransitions.WithLabelValues(target, prev.String(), next.String()).Inc()
	if next == Open {
		BreakerOpenedTotal.WithLabelValues(target).Inc()
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &b.cfg.Logger
	}
	evt := logger.Warn().Str("target", target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker transition")
}

func stateGaugeValue(state State) float64 {
	switch state {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}
