package tenant

import (
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"
)

var (
	// ErrMissing means no source named a tenant and there is no default.
	ErrMissing = errors.New("tenant: not specified")
	// ErrInvalid means the tenant id is not a usable slug.
	ErrInvalid = errors.New("tenant: invalid id")
)

// Tenant ids end up in Redis keys and back-office headers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Resolver picks the tenant a terminal signs in to.
type Resolver struct {
	HeaderName    string
	RootDomain    string
	DefaultTenant string
}

// NewResolver returns a resolver. An empty headerName means "X-Tenant-ID";
// an empty rootDomain disables subdomain lookup.
func NewResolver(headerName, rootDomain, defaultTenant string) *Resolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &Resolver{
		HeaderName:    headerName,
		RootDomain:    strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultTenant: strings.TrimSpace(defaultTenant),
	}
}

// Resolve returns the first tenant named by explicit, the tenant header, the
// request subdomain or the default, in that order, and validates it.
func (r *Resolver) Resolve(req *http.Request, explicit string) (string, error) {
	id := strings.TrimSpace(explicit)
	if id == "" && r != nil {
		id = r.fromRequest(req)
		if id == "" {
			id = r.DefaultTenant
		}
	}
	if id == "" {
		return "", ErrMissing
	}
	if !Valid(id) {
		return "", ErrInvalid
	}
	return id, nil
}

// Valid reports whether id is an acceptable tenant slug.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}

func (r *Resolver) fromRequest(req *http.Request) string {
	if req == nil {
		return ""
	}
	if id := strings.TrimSpace(req.Header.Get(r.HeaderName)); id != "" {
		return id
	}
	if r.RootDomain == "" {
		return ""
	}
	host := strings.ToLower(hostWithoutPort(req.Host))
	suffix := "." + r.RootDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	// Only the label directly under the root counts: a.b.root is not a tenant.
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

func hostWithoutPort(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return strings.Trim(hostport, "[]")
}
