package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/toko-pos/internal/common"
)

// Guard applies a sliding-window Limiter to a route. It fails open: when
// Redis is unreachable the request proceeds and OnError is told.
type Guard struct {
	Limiter Limiter
	Key     func(*http.Request) string
	Window  time.Duration
	Max     int
	OnError func(error)
}

func (g Guard) Middleware(next http.Handler) http.Handler {
	if g.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, reset, err := g.Limiter.Allow(r.Context(), g.Key(r), g.Window, g.Max)
		if err != nil {
			if g.OnError != nil {
				g.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(max(g.Max, 0)))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}
		wait := int(math.Ceil(time.Until(reset).Seconds()))
		h.Set("Retry-After", strconv.Itoa(max(wait, 1)))
		common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "too many login attempts", nil)
	})
}

// LoginKey keys login attempts by tenant header and client address.
func LoginKey(tenantHeader string) func(*http.Request) string {
	return func(r *http.Request) string {
		tenant := strings.ToLower(strings.TrimSpace(r.Header.Get(tenantHeader)))
		return "login:" + tenant + ":" + common.ClientIP(r)
	}
}
