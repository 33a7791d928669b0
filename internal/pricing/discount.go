package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// DiscountKind identifies how a discount amount is interpreted.
type DiscountKind string

const (
	// DiscountPercentage reduces the subtotal by a percentage (0-100).
	DiscountPercentage DiscountKind = "PERCENTAGE"
	// DiscountFixed reduces the subtotal by a fixed amount.
	DiscountFixed DiscountKind = "FIXED"
)

// ErrInvalidDiscount is returned when a discount record cannot be used for pricing.
var ErrInvalidDiscount = errors.New("pricing: invalid discount")

// Discount is a named reduction selectable at the terminal.
type Discount struct {
	ID      string
	Name    string
	Kind    DiscountKind
	Percent Percent
	Fixed   Money
}

// ParseDiscountKind normalises the kind string used by the back-office API.
func ParseDiscountKind(raw string) (DiscountKind, error) {
	switch DiscountKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case DiscountPercentage:
		return DiscountPercentage, nil
	case DiscountFixed:
		return DiscountFixed, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidDiscount, raw)
	}
}

// NewPercentageDiscount validates and builds a percentage discount.
func NewPercentageDiscount(id, name string, pct Percent) (Discount, error) {
	if pct < 0 || pct > 100*100 {
		return Discount{}, fmt.Errorf("%w: percentage %s out of range", ErrInvalidDiscount, pct)
	}
	return Discount{ID: id, Name: name, Kind: DiscountPercentage, Percent: pct}, nil
}

// NewFixedDiscount validates and builds a fixed-amount discount.
func NewFixedDiscount(id, name string, amount Money) (Discount, error) {
	if amount < 0 {
		return Discount{}, fmt.Errorf("%w: negative amount %s", ErrInvalidDiscount, amount)
	}
	return Discount{ID: id, Name: name, Kind: DiscountFixed, Fixed: amount}, nil
}

// ApplyDiscount returns the reduction the discount yields on subtotal. The
// result is not clamped; ComputeTotals caps it at the subtotal.
func ApplyDiscount(subtotal Money, d *Discount) Money {
	if d == nil {
		return 0
	}
	switch d.Kind {
	case DiscountPercentage:
		return d.Percent.of(subtotal)
	case DiscountFixed:
		return d.Fixed
	default:
		return 0
	}
}
