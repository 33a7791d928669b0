package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestHeadersForJSONAPI(t *testing.T) {
	h := Headers{HSTS: true, HSTSMaxAge: 24 * time.Hour}.Middleware(noContent())

	req := httptest.NewRequest(http.MethodGet, "https://pos.example.com/api/v1/cart", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
	require.Equal(t, "max-age=86400; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHSTSOnlyOverHTTPS(t *testing.T) {
	plain := httptest.NewRecorder()
	Headers{HSTS: true}.Middleware(noContent()).ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	untrusted := httptest.NewRecorder()
	Headers{HSTS: true}.Middleware(noContent()).ServeHTTP(untrusted, req)
	require.Empty(t, untrusted.Header().Get("Strict-Transport-Security"))

	proxied := httptest.NewRecorder()
	Headers{HSTS: true, TrustForwardedProto: true}.Middleware(noContent()).ServeHTTP(proxied, req)
	require.Equal(t, "max-age=31536000; includeSubDomains", proxied.Header().Get("Strict-Transport-Security"))
}

func TestCORSAllowlist(t *testing.T) {
	h := CORS([]string{"https://till.example.com"}, "X-Store-Tenant")(noContent())

	req := httptest.NewRequest(http.MethodGet, "http://localhost/api/v1/cart", nil)
	req.Header.Set("Origin", "https://till.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "https://till.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	bad := httptest.NewRequest(http.MethodGet, "http://localhost/api/v1/cart", nil)
	bad.Header.Set("Origin", "https://malicious.example")
	badRR := httptest.NewRecorder()
	h.ServeHTTP(badRR, bad)
	require.Empty(t, badRR.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowsTenantHeader(t *testing.T) {
	h := CORS(nil, "X-Store-Tenant")(noContent())

	req := httptest.NewRequest(http.MethodOptions, "http://localhost/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://any.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Store-Tenant, Idempotency-Key")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-Store-Tenant")
}
