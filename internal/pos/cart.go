package pos

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/session"
)

type catalogView struct {
	Products   []backoffice.Product  `json:"products"`
	Categories []backoffice.Category `json:"categories"`
	Customers  []backoffice.Customer `json:"customers"`
	Discounts  []backoffice.Discount `json:"discounts"`
	Tenant     backoffice.Tenant     `json:"tenant"`
	LoadedAt   time.Time             `json:"loadedAt"`
}

type lineView struct {
	cart.Line
	Subtotal pricing.Money `json:"subtotal"`
}

type cartView struct {
	Lines            []lineView           `json:"lines"`
	ItemCount        int                  `json:"itemCount"`
	Totals           pricing.Totals       `json:"totals"`
	Discount         *backoffice.Discount `json:"discount,omitempty"`
	Customer         *backoffice.Customer `json:"customer,omitempty"`
	PointsEstimate   int64                `json:"pointsEstimate"`
	CheckoutInFlight bool                 `json:"checkoutInFlight"`
}

func renderCart(v session.View) cartView {
	lines := make([]lineView, 0, len(v.Lines))
	for _, l := range v.Lines {
		lines = append(lines, lineView{Line: l, Subtotal: l.Subtotal()})
	}
	return cartView{
		Lines:            lines,
		ItemCount:        v.ItemCount,
		Totals:           v.Totals,
		Discount:         v.Discount,
		Customer:         v.Customer,
		PointsEstimate:   v.PointsEstimate,
		CheckoutInFlight: v.CheckoutInFlight,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Catalog returns the session snapshot with products filtered by name/SKU
// query and category.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	snap := sess.Snapshot()
	q := r.URL.Query()
	common.Data(w, http.StatusOK, catalogView{
		Products:   nonNil(catalog.Filter(snap.Products, q.Get("q"), q.Get("category"))),
		Categories: nonNil(snap.SortedCategories()),
		Customers:  nonNil(snap.Customers),
		Discounts:  nonNil(snap.Discounts),
		Tenant:     snap.Tenant,
		LoadedAt:   snap.LoadedAt,
	})
}

// RefreshCatalog refetches every slice, keeping the previous data for any
// slice that fails.
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	snap, err := h.Loader.Refresh(r.Context(), sess.Credentials(), sess.Snapshot())
	var partial *catalog.PartialLoadError
	if err != nil && !errors.As(err, &partial) {
		writeError(w, err)
		return
	}
	sess.ApplySnapshot(snap)
	if partial != nil {
		h.Logger.Warn().Err(partial).Str("session_id", sess.ID).Msg("catalog refresh incomplete")
	}
	common.Data(w, http.StatusOK, reportFor(snap, err))
}

// Cart returns the lines and freshly computed totals.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}

type addLineRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	VariantID string `json:"variantId" validate:"omitempty,max=64"`
}

// AddLine adds one unit of a product or variant.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	var req addLineRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if _, err := sess.AddItem(strings.TrimSpace(req.ProductID), strings.TrimSpace(req.VariantID)); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}

type updateLineRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

// UpdateLine changes a line's quantity by delta. A quantity that reaches
// zero removes the line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	var req updateLineRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.UpdateQuantity(chi.URLParam(r, "key"), req.Delta); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}

// ClearCart empties the cart and drops the selected discount and customer.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	if err := sess.ClearCart(); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}

type selectDiscountRequest struct {
	DiscountID string `json:"discountId" validate:"omitempty,max=64"`
}

// SelectDiscount applies a catalog discount; an empty id clears it.
func (h *Handler) SelectDiscount(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	var req selectDiscountRequest
	if err := common.DecodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.SelectDiscount(strings.TrimSpace(req.DiscountID)); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}

type selectCustomerRequest struct {
	CustomerID string `json:"customerId" validate:"omitempty,max=64"`
}

// SelectCustomer attaches a catalog customer; an empty id clears it.
func (h *Handler) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	var req selectCustomerRequest
	if err := common.DecodeJSON(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.SelectCustomer(strings.TrimSpace(req.CustomerID)); err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, renderCart(sess.View()))
}
