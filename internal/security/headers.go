package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
)

// Headers sets response headers for a JSON-only API. Nothing served here is
// meant to render in a browser, so framing and content loading are denied.
type Headers struct {
	// HSTS is sent on requests that arrived over TLS, or that a trusted proxy
	// marks as https when TrustForwardedProto is set.
	HSTS                bool
	HSTSMaxAge          time.Duration
	TrustForwardedProto bool
}

const defaultHSTSMaxAge = 365 * 24 * time.Hour

func (h Headers) Middleware(next http.Handler) http.Handler {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if h.HSTS && h.secure(r) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) secure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return h.TrustForwardedProto && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// CORS returns the cross-origin policy for browser terminals. An empty
// list or "*" allows any origin without credentials.
func CORS(origins []string, tenantHeader string) func(http.Handler) http.Handler {
	allowed := []string{"Authorization", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"}
	if tenantHeader != "" {
		allowed = append(allowed, tenantHeader)
	}
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: allowed,
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}
	if len(origins) == 0 || (len(origins) == 1 && strings.TrimSpace(origins[0]) == "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = origins
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}
