package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the canonical peer address of r. Forwarding headers are
// resolved upstream by chi's RealIP middleware, which rewrites RemoteAddr,
// so they are not consulted here.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.Trim(raw, "[]")
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap().WithZone("").String()
	}
	return raw
}
