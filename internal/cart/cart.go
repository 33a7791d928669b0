package cart

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrInvalidLine is returned when a product or variant lacks the fields a cart line needs.
var ErrInvalidLine = errors.New("cart: invalid line")

var validate = validator.New()

// Product is the catalog data captured when a product is added.
type Product struct {
	ID    string        `validate:"required"`
	Name  string        `validate:"required"`
	Price pricing.Money `validate:"gte=0"`
}

// Variant is an optional product variant with its own price.
type Variant struct {
	ID    string        `validate:"required"`
	Name  string        `validate:"required"`
	Price pricing.Money `validate:"gte=0"`
}

// Line is one product/variant entry in the cart. Name, VariantName and
// UnitPrice are snapshots taken when the line was first added.
type Line struct {
	Key         string        `json:"key"`
	ProductID   string        `json:"productId"`
	VariantID   string        `json:"variantId,omitempty"`
	Name        string        `json:"name"`
	VariantName string        `json:"variantName,omitempty"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	Quantity    int           `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() pricing.Money {
	return l.UnitPrice * pricing.Money(l.Quantity)
}

// KeySeparator joins product and variant ids in a line key. Back-office ids
// are slugs or hex object ids and never contain it.
const KeySeparator = ":"

// Key derives the cart key for a product and optional variant.
func Key(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + KeySeparator + variantID
}

// NewLine validates the inputs and builds a line with quantity 1.
func NewLine(p Product, v *Variant) (Line, error) {
	if err := validate.Struct(p); err != nil {
		return Line{}, fmt.Errorf("%w: product: %v", ErrInvalidLine, err)
	}
	line := Line{
		Key:       Key(p.ID, ""),
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
	}
	if v != nil {
		if err := validate.Struct(v); err != nil {
			return Line{}, fmt.Errorf("%w: variant: %v", ErrInvalidLine, err)
		}
		line.Key = Key(p.ID, v.ID)
		line.VariantID = v.ID
		line.VariantName = v.Name
		line.UnitPrice = v.Price
	}
	return line, nil
}

// Cart holds the lines of a single checkout session. It is not safe for
// concurrent use; the owning session serialises access.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddLine increments the quantity of an existing line with the same key or
// appends a new line with quantity 1.
func (c *Cart) AddLine(p Product, v *Variant) (Line, error) {
	line, err := NewLine(p, v)
	if err != nil {
		return Line{}, err
	}
	if idx := c.index(line.Key); idx >= 0 {
		c.lines[idx].Quantity++
		return c.lines[idx], nil
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// UpdateQuantity adds delta to the line's quantity and removes the line when
// the result drops to zero or below. It reports whether the key was present.
func (c *Cart) UpdateQuantity(key string, delta int) bool {
	idx := c.index(key)
	if idx < 0 {
		return false
	}
	qty := c.lines[idx].Quantity + delta
	if qty <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return true
	}
	c.lines[idx].Quantity = qty
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line stored under key.
func (c *Cart) Line(key string) (Line, bool) {
	if idx := c.index(key); idx >= 0 {
		return c.lines[idx], true
	}
	return Line{}, false
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// PricingItems converts the lines into pricing inputs.
func (c *Cart) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return items
}

func (c *Cart) index(key string) int {
	for i := range c.lines {
		if c.lines[i].Key == key {
			return i
		}
	}
	return -1
}
