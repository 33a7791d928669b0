// Package checkout assembles order payloads from a terminal session and
// submits them to the remote order service.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// DefaultStoreID is used when neither configuration nor catalog names a store.
const DefaultStoreID = "MAIN"

// Status is the order status requested at checkout.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
)

// ParseStatus accepts "paid" or "pending"; an empty value means paid.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StatusPaid:
		return StatusPaid, nil
	case StatusPending:
		return StatusPending, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unsupported status %q", raw)}
	}
}

// ValidationError reports checkout input that cannot be submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "checkout: " + e.Field + ": " + e.Reason
}

// ErrEmptyCart is returned when checkout is attempted with no lines.
var ErrEmptyCart = &ValidationError{Field: "items", Reason: "cart is empty"}

// Item is one line of the order payload.
type Item struct {
	ProductID           string        `json:"productId"`
	VariantID           string        `json:"variantId,omitempty"`
	Qty                 int           `json:"qty"`
	NameSnapshot        string        `json:"nameSnapshot"`
	VariantNameSnapshot string        `json:"variantNameSnapshot"`
	PriceSnapshot       pricing.Money `json:"priceSnapshot"`
	Subtotal            pricing.Money `json:"subtotal"`
}

// Payload is the body posted to the order service.
type Payload struct {
	StoreID        string        `json:"storeId"`
	OrderNo        string        `json:"orderNo"`
	Items          []Item        `json:"items"`
	TotalAmount    pricing.Money `json:"totalAmount"`
	TaxAmount      pricing.Money `json:"taxAmount"`
	DiscountAmount pricing.Money `json:"discountAmount"`
	FinalAmount    pricing.Money `json:"finalAmount"`
	CustomerID     string        `json:"customerId,omitempty"`
	PointsEarned   int64         `json:"pointsEarned"`
	Status         Status        `json:"status"`
}

// BuildInput is the session state a payload is built from.
type BuildInput struct {
	OrderNo    string
	StoreID    string
	Lines      []cart.Line
	Discount   *pricing.Discount
	CustomerID string
	Config     pricing.TenantConfig
	Status     Status
}

// Build computes fresh totals and assembles the payload. An empty cart
// yields ErrEmptyCart and no payload.
func Build(in BuildInput) (Payload, error) {
	if len(in.Lines) == 0 {
		return Payload{}, ErrEmptyCart
	}
	if strings.TrimSpace(in.OrderNo) == "" {
		return Payload{}, &ValidationError{Field: "orderNo", Reason: "required"}
	}
	status := in.Status
	if status == "" {
		status = StatusPaid
	}
	if status != StatusPaid && status != StatusPending {
		return Payload{}, &ValidationError{Field: "status", Reason: fmt.Sprintf("unsupported status %q", status)}
	}

	items := make([]Item, 0, len(in.Lines))
	pricingItems := make([]pricing.Item, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return Payload{}, &ValidationError{Field: "items", Reason: fmt.Sprintf("line %s has quantity %d", l.Key, l.Quantity)}
		}
		items = append(items, Item{
			ProductID:           l.ProductID,
			VariantID:           l.VariantID,
			Qty:                 l.Quantity,
			NameSnapshot:        l.Name,
			VariantNameSnapshot: l.VariantName,
			PriceSnapshot:       l.UnitPrice,
			Subtotal:            l.Subtotal(),
		})
		pricingItems = append(pricingItems, pricing.Item{Qty: l.Quantity, UnitPrice: l.UnitPrice})
	}

	cfg := in.Config
	totals := pricing.ComputeTotals(pricingItems, in.Discount, &cfg)
	storeID := strings.TrimSpace(in.StoreID)
	if storeID == "" {
		storeID = DefaultStoreID
	}
	return Payload{
		StoreID:        storeID,
		OrderNo:        in.OrderNo,
		Items:          items,
		TotalAmount:    totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		FinalAmount:    totals.GrandTotal,
		CustomerID:     in.CustomerID,
		PointsEarned:   pricing.EstimatePoints(totals.GrandTotal, &cfg),
		Status:         status,
	}, nil
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
