package backoffice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// User is the operator returned by login.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

// LoginResult carries the bearer token issued by the back-office.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Ref is a reference that the API returns either as a bare id or as a
// populated object with an _id field.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts "id", {"_id": "id", ...} or null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return fmt.Errorf("backoffice: decode reference: %w", err)
	}
	*r = Ref(p)
	return nil
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID    string        `json:"_id"`
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
	SKU   string        `json:"sku,omitempty"`
	Stock int           `json:"stock,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID          string        `json:"_id"`
	Name        string        `json:"name"`
	SKU         string        `json:"sku,omitempty"`
	Price       pricing.Money `json:"price"`
	StoreID     string        `json:"storeId,omitempty"`
	Category    Ref           `json:"categoryId"`
	HasVariants bool          `json:"hasVariants"`
	Variants    []Variant     `json:"variants,omitempty"`
	Stock       int           `json:"stock,omitempty"`
}

// Variant looks up a variant by id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Category groups products on the POS screen.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Customer is a loyalty member selectable at checkout.
type Customer struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Points int64  `json:"points"`
}

// Discount is a discount record as stored by the back-office.
type Discount struct {
	ID    string          `json:"_id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Pricing validates the record and converts it for the pricing engine.
func (d Discount) Pricing() (pricing.Discount, error) {
	kind, err := pricing.ParseDiscountKind(d.Type)
	if err != nil {
		return pricing.Discount{}, err
	}
	if kind == pricing.DiscountPercentage {
		return pricing.NewPercentageDiscount(d.ID, d.Name, pricing.PercentFromDecimal(d.Value))
	}
	return pricing.NewFixedDiscount(d.ID, d.Name, pricing.MoneyFromDecimal(d.Value))
}

// TenantConfig holds the tenant settings relevant to the terminal.
type TenantConfig struct {
	TaxRate        pricing.Percent `json:"taxRate"`
	LoyaltyEnabled bool            `json:"loyaltyEnabled"`
	LoyaltyRate    pricing.Money   `json:"loyaltyRate"`
	StoreName      string          `json:"storeName,omitempty"`
}

// Tenant is the business the operator belongs to.
type Tenant struct {
	ID     string       `json:"_id"`
	Name   string       `json:"name"`
	Config TenantConfig `json:"config"`
}

// Pricing converts the tenant settings for the pricing engine.
func (c TenantConfig) Pricing() pricing.TenantConfig {
	return pricing.TenantConfig{
		TaxRate:        c.TaxRate,
		LoyaltyEnabled: c.LoyaltyEnabled,
		LoyaltyRate:    c.LoyaltyRate,
	}
}

// OrderReceipt is the order service's acknowledgement of a created order.
type OrderReceipt struct {
	ID      string `json:"_id"`
	OrderNo string `json:"orderNo"`
	Status  string `json:"status"`
}

// TrackedItem is an item line of a tracked order.
type TrackedItem struct {
	NameSnapshot string `json:"nameSnapshot"`
	Qty          int    `json:"qty"`
}

// TrackedOrder is the public view of an order.
type TrackedOrder struct {
	OrderNo              string        `json:"orderNo"`
	Status               string        `json:"status"`
	CustomerNameSnapshot string        `json:"customerNameSnapshot,omitempty"`
	Items                []TrackedItem `json:"items"`
	FinalAmount          pricing.Money `json:"finalAmount"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}
