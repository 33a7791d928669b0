package pricing

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Subtotal returns UnitPrice * Qty.
func (it Item) Subtotal() Money {
	return it.UnitPrice * Money(it.Qty)
}

// Totals aggregates computed pricing components.
type Totals struct {
	Subtotal           Money `json:"subtotal"`
	DiscountAmount     Money `json:"discountAmount"`
	DiscountedSubtotal Money `json:"discountedSubtotal"`
	TaxAmount          Money `json:"taxAmount"`
	GrandTotal         Money `json:"grandTotal"`
}

// ApplyTax returns the tax due on the already discounted subtotal.
func ApplyTax(discountedSubtotal Money, rate Percent) Money {
	if rate <= 0 || discountedSubtotal <= 0 {
		return 0
	}
	return rate.of(discountedSubtotal)
}

// ComputeTotals calculates cart totals. A nil discount means no discount and a
// nil config means no tax. The function is pure.
func ComputeTotals(items []Item, discount *Discount, cfg *TenantConfig) Totals {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitPrice < 0 {
			continue
		}
		subtotal += it.Subtotal()
	}

	reduction := ApplyDiscount(subtotal, discount)
	if reduction < 0 {
		reduction = 0
	}
	if reduction > subtotal {
		reduction = subtotal
	}
	discounted := subtotal - reduction
	if discounted < 0 {
		discounted = 0
	}

	var rate Percent
	if cfg != nil {
		rate = cfg.TaxRate
	}
	tax := ApplyTax(discounted, rate)

	total := discounted + tax
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal:           subtotal,
		DiscountAmount:     reduction,
		DiscountedSubtotal: discounted,
		TaxAmount:          tax,
		GrandTotal:         total,
	}
}
