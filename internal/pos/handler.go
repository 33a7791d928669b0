// Package pos exposes terminal sessions, the cart and checkout over HTTP.
package pos

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/session"
	"github.com/noah-isme/toko-pos/internal/tenant"
)

// Backoffice is the subset of the remote API the handlers call directly.
type Backoffice interface {
	Login(ctx context.Context, tenantID, username, password string) (backoffice.LoginResult, error)
	TrackOrder(ctx context.Context, orderNo string) (backoffice.TrackedOrder, error)
}

// CatalogLoader fetches catalog snapshots for a tenant.
type CatalogLoader interface {
	Load(ctx context.Context, cred backoffice.Credentials, prev catalog.Snapshot) (catalog.Snapshot, error)
	Refresh(ctx context.Context, cred backoffice.Credentials, prev catalog.Snapshot) (catalog.Snapshot, error)
}

// Submitter posts a session's cart as an order.
type Submitter interface {
	Submit(ctx context.Context, sess *session.Session, status checkout.Status) (checkout.Result, error)
}

// Handler wires sessions, catalog and checkout to HTTP.
type Handler struct {
	Backoffice Backoffice
	Loader     CatalogLoader
	Sessions   *session.Store
	Tokens     *session.Tokens
	Orders     Submitter
	Tenants    *tenant.Resolver
	Logger     zerolog.Logger
}

// Middlewares are optional per-route guards installed by Routes.
type Middlewares struct {
	// Login guards session creation, typically a per-IP limiter.
	Login func(http.Handler) http.Handler
	// API guards every authenticated route.
	API func(http.Handler) http.Handler
	// Checkout guards order submission, typically the idempotency middleware.
	Checkout func(http.Handler) http.Handler
}

func orPass(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

// Routes mounts the terminal API on r.
func (h *Handler) Routes(r chi.Router, mw Middlewares) {
	r.Route("/api/v1", func(r chi.Router) {
		r.With(orPass(mw.Login)).Post("/sessions", h.Login)
		r.Get("/orders/track/{orderNo}", h.TrackOrder)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Use(orPass(mw.API))

			r.Delete("/sessions/current", h.Logout)

			r.Get("/catalog", h.Catalog)
			r.Post("/catalog/refresh", h.RefreshCatalog)

			r.Get("/cart", h.Cart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/lines", h.AddLine)
			r.Patch("/cart/lines/{key}", h.UpdateLine)
			r.Put("/cart/discount", h.SelectDiscount)
			r.Put("/cart/customer", h.SelectCustomer)

			r.With(orPass(mw.Checkout)).Post("/checkout", h.Checkout)
		})
	})
}
