package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Slice names one of the independently fetched parts of a snapshot.
type Slice string

const (
	SliceProducts   Slice = "products"
	SliceCategories Slice = "categories"
	SliceCustomers  Slice = "customers"
	SliceDiscounts  Slice = "discounts"
	SliceTenant     Slice = "tenant"
)

// AllSlices lists every slice in load order.
var AllSlices = []Slice{SliceProducts, SliceCategories, SliceCustomers, SliceDiscounts, SliceTenant}

// Snapshot is the reference data a terminal works against.
type Snapshot struct {
	Products   []backoffice.Product  `json:"products"`
	Categories []backoffice.Category `json:"categories"`
	Customers  []backoffice.Customer `json:"customers"`
	Discounts  []backoffice.Discount `json:"discounts"`
	Tenant     backoffice.Tenant     `json:"tenant"`
	LoadedAt   time.Time             `json:"loadedAt"`
}

// Product looks up a product by id.
func (s Snapshot) Product(id string) (backoffice.Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return backoffice.Product{}, false
}

// Customer looks up a customer by id.
func (s Snapshot) Customer(id string) (backoffice.Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return backoffice.Customer{}, false
}

// Discount looks up a discount record by id.
func (s Snapshot) Discount(id string) (backoffice.Discount, bool) {
	for _, d := range s.Discounts {
		if d.ID == id {
			return d, true
		}
	}
	return backoffice.Discount{}, false
}

// PricingConfig returns the tenant settings used for totals.
func (s Snapshot) PricingConfig() pricing.TenantConfig {
	return s.Tenant.Config.Pricing()
}

// StoreID returns the store of the first product, or "" when the catalog is empty.
func (s Snapshot) StoreID() string {
	for _, p := range s.Products {
		if p.StoreID != "" {
			return p.StoreID
		}
	}
	return ""
}

// Filter returns the products whose name or SKU contains query
// (case-insensitive) and which belong to categoryID when it is set.
// Results keep catalog order.
func Filter(products []backoffice.Product, query, categoryID string) []backoffice.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	categoryID = strings.TrimSpace(categoryID)
	out := make([]backoffice.Product, 0, len(products))
	for _, p := range products {
		if categoryID != "" && p.Category.ID != categoryID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortedCategories returns the categories ordered by name.
func (s Snapshot) SortedCategories() []backoffice.Category {
	out := append([]backoffice.Category(nil), s.Categories...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
