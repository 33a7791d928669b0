package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOrder(t *testing.T) {
	r := NewResolver("", "pos.example.com", "main")

	req := httptest.NewRequest(http.MethodPost, "http://acme.pos.example.com:8080/api/v1/sessions", nil)
	id, err := r.Resolve(req, "")
	require.NoError(t, err)
	require.Equal(t, "acme", id)

	req.Header.Set("X-Tenant-ID", "globex")
	id, err = r.Resolve(req, "")
	require.NoError(t, err)
	require.Equal(t, "globex", id)

	id, err = r.Resolve(req, " initech ")
	require.NoError(t, err)
	require.Equal(t, "initech", id)

	bare := httptest.NewRequest(http.MethodGet, "http://pos.example.com/", nil)
	id, err = r.Resolve(bare, "")
	require.NoError(t, err)
	require.Equal(t, "main", id)
}

func TestResolveIgnoresDeepSubdomains(t *testing.T) {
	r := NewResolver("", "pos.example.com", "")
	req := httptest.NewRequest(http.MethodGet, "http://a.b.pos.example.com/", nil)
	_, err := r.Resolve(req, "")
	require.ErrorIs(t, err, ErrMissing)

	other := httptest.NewRequest(http.MethodGet, "http://acme.elsewhere.com/", nil)
	_, err = r.Resolve(other, "")
	require.ErrorIs(t, err, ErrMissing)
}

func TestResolveRejectsMalformedIDs(t *testing.T) {
	r := NewResolver("X-Tenant-ID", "", "")
	for _, bad := range []string{"a:b", "../x", "-lead", "has space", string(make([]byte, 65))} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", bad)
		_, err := r.Resolve(req, "")
		require.ErrorIs(t, err, ErrInvalid, bad)
	}
	require.True(t, Valid("store_01-A"))
}

func TestNilResolverUsesExplicitOnly(t *testing.T) {
	var r *Resolver
	id, err := r.Resolve(nil, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", id)
	_, err = r.Resolve(nil, "")
	require.ErrorIs(t, err, ErrMissing)
}

func TestContextAndKeys(t *testing.T) {
	_, ok := FromContext(WithTenant(context.Background(), "  "))
	require.False(t, ok)
	id, ok := FromContext(WithTenant(context.Background(), "t1"))
	require.True(t, ok)
	require.Equal(t, "t1", id)

	require.Equal(t, "t1:catalog:products", PrefixKey("t1", "catalog:products"))
	require.Equal(t, "k", PrefixKey("", "k"))
}
