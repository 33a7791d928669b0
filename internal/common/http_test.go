package common_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1:5000":         "10.0.0.1",
		"[::ffff:10.0.0.2]:443": "10.0.0.2",
		"[fe80::1%eth0]:80":     "fe80::1",
		"192.168.1.9":           "192.168.1.9",
		"terminal.local":        "terminal.local",
	}
	for remote, want := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = remote
		require.Equal(t, want, common.ClientIP(req), remote)
	}
}

func TestClientIPIgnoresForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	require.Equal(t, "10.0.0.1", common.ClientIP(req))
	require.Empty(t, common.ClientIP(nil))
}
