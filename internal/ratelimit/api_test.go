package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/toko-pos/internal/common"
)

func TestAPILimitsPerSession(t *testing.T) {
	mw, err := API(memory.NewStore(), "2-M")
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(sessionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req = req.WithContext(common.WithSessionID(req.Context(), sessionID))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, call("a").Code)
	require.Equal(t, http.StatusOK, call("a").Code)
	rr := call("a")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), common.CodeRateLimited)
	require.Equal(t, http.StatusOK, call("b").Code)
}

func TestAPIRejectsBadRate(t *testing.T) {
	_, err := API(memory.NewStore(), "lots")
	require.Error(t, err)
}

func TestLoginKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	req.RemoteAddr = "10.0.0.1:5000"
	require.Equal(t, "login:t1:10.0.0.1", LoginKey("X-Tenant-ID")(req))
}
