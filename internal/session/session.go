// Package session holds the per-operator terminal state: cart, selected
// discount and customer, and the catalog snapshot they are priced against.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

var (
	ErrUnknownProduct   = errors.New("session: unknown product")
	ErrUnknownVariant   = errors.New("session: unknown variant")
	ErrVariantRequired  = errors.New("session: product requires a variant")
	ErrUnknownLine      = errors.New("session: unknown cart line")
	ErrUnknownDiscount  = errors.New("session: unknown discount")
	ErrUnknownCustomer  = errors.New("session: unknown customer")
	ErrCheckoutInFlight = errors.New("session: checkout in flight")
)

// Session is one operator's terminal. All methods are safe for concurrent use.
// The busy flag only changes while mu is held, so a mutation either lands
// before a checkout captures the cart or is rejected.
type Session struct {
	ID           string
	TenantID     string
	OperatorID   string
	OperatorName string
	CreatedAt    time.Time

	token string

	mu         sync.Mutex
	lastSeen   time.Time
	cart       *cart.Cart
	discount   *pricing.Discount
	customerID string
	catalog    catalog.Snapshot

	busy atomic.Bool
}

// Credentials returns the back-office credentials of the operator.
func (s *Session) Credentials() backoffice.Credentials {
	return backoffice.Credentials{Token: s.token, TenantID: s.TenantID}
}

// Snapshot returns the catalog the session prices against.
func (s *Session) Snapshot() catalog.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// ApplySnapshot replaces the catalog. A selected discount or customer that
// no longer exists is cleared; a discount that still exists is re-read so
// edits on the back-office take effect.
func (s *Session) ApplySnapshot(snap catalog.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = snap
	if s.discount != nil {
		id := s.discount.ID
		s.discount = nil
		if rec, ok := snap.Discount(id); ok {
			if d, err := rec.Pricing(); err == nil {
				s.discount = &d
			}
		}
	}
	if s.customerID != "" {
		if _, ok := snap.Customer(s.customerID); !ok {
			s.customerID = ""
		}
	}
}

// AddItem adds one unit of the product, or of its variant when variantID is set.
func (s *Session) AddItem(productID, variantID string) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return cart.Line{}, ErrCheckoutInFlight
	}

	p, ok := s.catalog.Product(productID)
	if !ok {
		return cart.Line{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	product := cart.Product{ID: p.ID, Name: p.Name, Price: p.Price}
	if variantID == "" {
		if p.HasVariants && len(p.Variants) > 0 {
			return cart.Line{}, fmt.Errorf("%w: %s", ErrVariantRequired, productID)
		}
		return s.cartLocked().AddLine(product, nil)
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return cart.Line{}, fmt.Errorf("%w: %s", ErrUnknownVariant, variantID)
	}
	return s.cartLocked().AddLine(product, &cart.Variant{ID: v.ID, Name: v.Name, Price: v.Price})
}

// UpdateQuantity applies delta to the line under key. The line is removed
// when its quantity drops to zero or below.
func (s *Session) UpdateQuantity(key string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return ErrCheckoutInFlight
	}
	if !s.cartLocked().UpdateQuantity(key, delta) {
		return fmt.Errorf("%w: %s", ErrUnknownLine, key)
	}
	return nil
}

// ClearCart empties the cart and drops the selected discount and customer.
func (s *Session) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return ErrCheckoutInFlight
	}
	s.resetLocked()
	return nil
}

// SelectDiscount selects a discount by id; an empty id clears the selection.
func (s *Session) SelectDiscount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return ErrCheckoutInFlight
	}
	if id == "" {
		s.discount = nil
		return nil
	}
	rec, ok := s.catalog.Discount(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDiscount, id)
	}
	d, err := rec.Pricing()
	if err != nil {
		return err
	}
	s.discount = &d
	return nil
}

// SelectCustomer selects a customer by id; an empty id clears the selection.
func (s *Session) SelectCustomer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return ErrCheckoutInFlight
	}
	if id != "" {
		if _, ok := s.catalog.Customer(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCustomer, id)
		}
	}
	s.customerID = id
	return nil
}

// View is a read-only rendering of the cart and its totals.
type View struct {
	Lines            []cart.Line          `json:"lines"`
	ItemCount        int                  `json:"itemCount"`
	Totals           pricing.Totals       `json:"totals"`
	Discount         *backoffice.Discount `json:"discount,omitempty"`
	Customer         *backoffice.Customer `json:"customer,omitempty"`
	PointsEstimate   int64                `json:"pointsEstimate"`
	CheckoutInFlight bool                 `json:"checkoutInFlight"`
}

// View recomputes the totals from the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked()
	cfg := s.catalog.PricingConfig()
	totals := pricing.ComputeTotals(c.PricingItems(), s.discount, &cfg)
	v := View{
		Lines:            c.Lines(),
		ItemCount:        c.ItemCount(),
		Totals:           totals,
		PointsEstimate:   pricing.EstimatePoints(totals.GrandTotal, &cfg),
		CheckoutInFlight: s.busy.Load(),
	}
	if s.discount != nil {
		if rec, ok := s.catalog.Discount(s.discount.ID); ok {
			v.Discount = &rec
		}
	}
	if s.customerID != "" {
		if cu, ok := s.catalog.Customer(s.customerID); ok {
			v.Customer = &cu
		}
	}
	return v
}

// Checkout is the state captured when a submission starts.
type Checkout struct {
	Lines      []cart.Line
	Discount   *pricing.Discount
	CustomerID string
	Config     pricing.TenantConfig
	StoreID    string
}

// BeginCheckout marks the session busy and captures the state to submit.
// Only one checkout may be in flight; the cart is frozen until EndCheckout.
func (s *Session) BeginCheckout() (Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy.CompareAndSwap(false, true) {
		return Checkout{}, ErrCheckoutInFlight
	}
	out := Checkout{
		Lines:      s.cartLocked().Lines(),
		CustomerID: s.customerID,
		Config:     s.catalog.PricingConfig(),
		StoreID:    s.catalog.StoreID(),
	}
	if s.discount != nil {
		d := *s.discount
		out.Discount = &d
	}
	return out, nil
}

// EndCheckout releases the busy flag. On success the cart, discount and
// customer are cleared; otherwise they are kept for a retry.
func (s *Session) EndCheckout(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.resetLocked()
	}
	s.busy.Store(false)
}

// Busy reports whether a checkout is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) cartLocked() *cart.Cart {
	if s.cart == nil {
		s.cart = cart.New()
	}
	return s.cart
}

func (s *Session) resetLocked() {
	s.cartLocked().Clear()
	s.discount = nil
	s.customerID = ""
}
