package tenant

import (
	"context"
	"strings"
)

type contextKey struct{}

// WithTenant stores the tenant identifier inside the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

// FromContext returns the tenant stored by WithTenant, if any.
func FromContext(ctx context.Context) (string, bool) {
	tenantID, _ := ctx.Value(contextKey{}).(string)
	tenantID = strings.TrimSpace(tenantID)
	return tenantID, tenantID != ""
}
