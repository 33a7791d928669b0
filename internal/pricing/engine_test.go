package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

func pct(t *testing.T, bps pricing.Percent) *pricing.Discount {
	t.Helper()
	d, err := pricing.NewPercentageDiscount("d1", "promo", bps)
	require.NoError(t, err)
	return &d
}

func fixed(t *testing.T, amount pricing.Money) *pricing.Discount {
	t.Helper()
	d, err := pricing.NewFixedDiscount("d2", "flat", amount)
	require.NoError(t, err)
	return &d
}

func TestComputeTotalsScenarios(t *testing.T) {
	tax5 := &pricing.TenantConfig{TaxRate: 500}

	t.Run("no discount with tax", func(t *testing.T) {
		totals := pricing.ComputeTotals([]pricing.Item{{Qty: 2, UnitPrice: pricing.Units(100)}}, nil, tax5)
		require.Equal(t, pricing.Units(200), totals.Subtotal)
		require.Equal(t, pricing.Money(0), totals.DiscountAmount)
		require.Equal(t, pricing.Units(10), totals.TaxAmount)
		require.Equal(t, pricing.Units(210), totals.GrandTotal)
	})

	t.Run("fixed discount larger than subtotal", func(t *testing.T) {
		totals := pricing.ComputeTotals([]pricing.Item{{Qty: 1, UnitPrice: pricing.Units(100)}}, fixed(t, pricing.Units(150)), &pricing.TenantConfig{})
		require.Equal(t, pricing.Money(0), totals.DiscountedSubtotal)
		require.Equal(t, pricing.Units(100), totals.DiscountAmount)
		require.Equal(t, pricing.Money(0), totals.TaxAmount)
		require.Equal(t, pricing.Money(0), totals.GrandTotal)
	})

	t.Run("percentage discount then tax", func(t *testing.T) {
		totals := pricing.ComputeTotals([]pricing.Item{{Qty: 3, UnitPrice: pricing.Units(50)}}, pct(t, 1000), tax5)
		require.Equal(t, pricing.Units(150), totals.Subtotal)
		require.Equal(t, pricing.Units(15), totals.DiscountAmount)
		require.Equal(t, pricing.Units(135), totals.DiscountedSubtotal)
		require.Equal(t, pricing.Money(675), totals.TaxAmount)
		require.Equal(t, pricing.Money(14175), totals.GrandTotal)
		require.Equal(t, "141.75", totals.GrandTotal.String())
	})
}

func TestComputeTotalsTaxUsesDiscountedSubtotal(t *testing.T) {
	items := []pricing.Item{{Qty: 4, UnitPrice: pricing.Units(25)}, {Qty: 1, UnitPrice: 999}}
	cfg := &pricing.TenantConfig{TaxRate: 1000}
	totals := pricing.ComputeTotals(items, fixed(t, pricing.Units(30)), cfg)

	require.Equal(t, pricing.Money(10999), totals.Subtotal)
	require.Equal(t, totals.Subtotal-totals.DiscountAmount, totals.DiscountedSubtotal)
	require.Equal(t, pricing.ApplyTax(totals.DiscountedSubtotal, cfg.TaxRate), totals.TaxAmount)
	require.NotEqual(t, pricing.ApplyTax(totals.Subtotal, cfg.TaxRate), totals.TaxAmount)
	require.Equal(t, totals.DiscountedSubtotal+totals.TaxAmount, totals.GrandTotal)
}

func TestComputeTotalsIsPure(t *testing.T) {
	items := []pricing.Item{{Qty: 3, UnitPrice: 1999}, {Qty: 1, UnitPrice: 4550}}
	discount := pct(t, 1250)
	cfg := &pricing.TenantConfig{TaxRate: 825}

	first := pricing.ComputeTotals(items, discount, cfg)
	second := pricing.ComputeTotals(items, discount, cfg)
	require.Equal(t, first, second)
}

func TestComputeTotalsSubtotalSumsLines(t *testing.T) {
	items := []pricing.Item{{Qty: 1, UnitPrice: 0}, {Qty: 7, UnitPrice: 133}, {Qty: 2, UnitPrice: 250}}
	totals := pricing.ComputeTotals(items, nil, nil)
	require.Equal(t, pricing.Money(7*133+2*250), totals.Subtotal)
	require.Equal(t, totals.Subtotal, totals.GrandTotal)
}

func TestComputeTotalsNeverNegative(t *testing.T) {
	for _, amount := range []pricing.Money{0, 1, 500, 10_000, 1_000_000} {
		totals := pricing.ComputeTotals([]pricing.Item{{Qty: 1, UnitPrice: 500}}, fixed(t, amount), &pricing.TenantConfig{TaxRate: 500})
		require.GreaterOrEqual(t, int64(totals.GrandTotal), int64(0))
		require.LessOrEqual(t, int64(totals.DiscountAmount), int64(totals.Subtotal))
		if amount >= totals.Subtotal {
			require.Equal(t, pricing.Money(0), totals.DiscountedSubtotal)
		}
	}
}

func TestApplyDiscount(t *testing.T) {
	require.Equal(t, pricing.Money(0), pricing.ApplyDiscount(10_000, nil))
	require.Equal(t, pricing.Money(2_000), pricing.ApplyDiscount(10_000, pct(t, 2000)))
	require.Equal(t, pricing.Units(150), pricing.ApplyDiscount(10_000, fixed(t, pricing.Units(150))))
	// 33.33% of 0.10 rounds to the nearest cent
	require.Equal(t, pricing.Money(3), pricing.ApplyDiscount(10, pct(t, 3333)))
}

func TestNewDiscountValidation(t *testing.T) {
	_, err := pricing.NewPercentageDiscount("x", "too much", 10_001)
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)

	_, err = pricing.NewFixedDiscount("x", "negative", -1)
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)

	kind, err := pricing.ParseDiscountKind(" percentage ")
	require.NoError(t, err)
	require.Equal(t, pricing.DiscountPercentage, kind)

	_, err = pricing.ParseDiscountKind("BOGO")
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)
}

func TestApplyTaxZeroRate(t *testing.T) {
	require.Equal(t, pricing.Money(0), pricing.ApplyTax(12_345, 0))
}
