package session

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

func testSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Products: []backoffice.Product{
			{ID: "p1", Name: "Coffee", Price: pricing.Units(10), StoreID: "S1"},
			{ID: "p2", Name: "Shirt", Price: pricing.Units(20), HasVariants: true, Variants: []backoffice.Variant{
				{ID: "v1", Name: "Large", Price: pricing.Units(25)},
			}},
		},
		Customers: []backoffice.Customer{{ID: "cu1", Name: "Ana", Points: 3}},
		Discounts: []backoffice.Discount{
			{ID: "d10", Name: "Ten", Type: "PERCENTAGE", Value: decimal.NewFromInt(10)},
			{ID: "d5", Name: "Five", Type: "FIXED", Value: decimal.NewFromInt(5)},
		},
		Tenant: backoffice.Tenant{ID: "t1", Config: backoffice.TenantConfig{TaxRate: 1000, LoyaltyEnabled: true}},
	}
}

func newSession(t *testing.T) *Session {
	t.Helper()
	return NewStore(0).Create(Params{TenantID: "t1", OperatorID: "op1", BackofficeToken: "tok", Catalog: testSnapshot()})
}

func TestAddItemAndTotals(t *testing.T) {
	s := newSession(t)

	_, err := s.AddItem("p1", "")
	require.NoError(t, err)
	_, err = s.AddItem("p1", "")
	require.NoError(t, err)
	line, err := s.AddItem("p2", "v1")
	require.NoError(t, err)
	require.Equal(t, "p2:v1", line.Key)

	require.NoError(t, s.SelectDiscount("d10"))
	v := s.View()
	require.Len(t, v.Lines, 2)
	require.Equal(t, 3, v.ItemCount)
	require.Equal(t, pricing.Units(45), v.Totals.Subtotal)
	require.Equal(t, pricing.Money(450), v.Totals.DiscountAmount)
	require.Equal(t, pricing.Money(405), v.Totals.TaxAmount)
	require.Equal(t, pricing.Money(4455), v.Totals.GrandTotal)
	require.EqualValues(t, 4, v.PointsEstimate)
	require.NotNil(t, v.Discount)
	require.Equal(t, "d10", v.Discount.ID)
}

func TestAddItemErrors(t *testing.T) {
	s := newSession(t)

	_, err := s.AddItem("nope", "")
	require.ErrorIs(t, err, ErrUnknownProduct)
	_, err = s.AddItem("p2", "")
	require.ErrorIs(t, err, ErrVariantRequired)
	_, err = s.AddItem("p2", "v9")
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	s := newSession(t)
	_, err := s.AddItem("p1", "")
	require.NoError(t, err)

	require.NoError(t, s.UpdateQuantity("p1", 2))
	require.Equal(t, 3, s.View().ItemCount)
	require.NoError(t, s.UpdateQuantity("p1", -3))
	require.Empty(t, s.View().Lines)
	require.ErrorIs(t, s.UpdateQuantity("p1", 1), ErrUnknownLine)
}

func TestSelections(t *testing.T) {
	s := newSession(t)

	require.ErrorIs(t, s.SelectDiscount("missing"), ErrUnknownDiscount)
	require.ErrorIs(t, s.SelectCustomer("missing"), ErrUnknownCustomer)
	require.NoError(t, s.SelectCustomer("cu1"))
	require.Equal(t, "Ana", s.View().Customer.Name)
	require.NoError(t, s.SelectCustomer(""))
	require.Nil(t, s.View().Customer)
}

func TestApplySnapshotDropsStaleSelections(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.SelectDiscount("d5"))
	require.NoError(t, s.SelectCustomer("cu1"))

	next := testSnapshot()
	next.Customers = nil
	next.Discounts = []backoffice.Discount{{ID: "d5", Name: "Seven", Type: "FIXED", Value: decimal.NewFromInt(7)}}
	s.ApplySnapshot(next)

	v := s.View()
	require.Nil(t, v.Customer)
	require.NotNil(t, v.Discount)

	_, err := s.AddItem("p1", "")
	require.NoError(t, err)
	require.Equal(t, pricing.Units(7), s.View().Totals.DiscountAmount)

	next.Discounts = nil
	s.ApplySnapshot(next)
	require.Nil(t, s.View().Discount)
}

func TestCheckoutBusyFlag(t *testing.T) {
	s := newSession(t)
	_, err := s.AddItem("p1", "")
	require.NoError(t, err)
	require.NoError(t, s.SelectCustomer("cu1"))

	state, err := s.BeginCheckout()
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	require.Equal(t, "cu1", state.CustomerID)
	require.Equal(t, "S1", state.StoreID)

	_, err = s.BeginCheckout()
	require.ErrorIs(t, err, ErrCheckoutInFlight)
	_, err = s.AddItem("p1", "")
	require.ErrorIs(t, err, ErrCheckoutInFlight)
	require.True(t, s.View().CheckoutInFlight)

	s.EndCheckout(false)
	require.Len(t, s.View().Lines, 1)

	_, err = s.BeginCheckout()
	require.NoError(t, err)
	s.EndCheckout(true)
	v := s.View()
	require.Empty(t, v.Lines)
	require.Nil(t, v.Customer)
	require.False(t, v.CheckoutInFlight)
}

func TestAddItemRacingCheckoutIsSubmittedOrRejected(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := newSession(t)

		s.mu.Lock()
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			close(started)
			_, err := s.AddItem("p1", "")
			done <- err
		}()
		<-started
		s.mu.Unlock()

		state, err := s.BeginCheckout()
		require.NoError(t, err)
		addErr := <-done
		s.EndCheckout(true)

		if addErr == nil {
			require.Len(t, state.Lines, 1, "acknowledged item missing from submission")
			require.Equal(t, 1, state.Lines[0].Quantity)
		} else {
			require.ErrorIs(t, addErr, ErrCheckoutInFlight)
			require.Empty(t, state.Lines)
		}
		require.Empty(t, s.View().Lines)
	}
}

func TestRefreshKeepsLineUnitPrice(t *testing.T) {
	s := newSession(t)
	_, err := s.AddItem("p1", "")
	require.NoError(t, err)

	next := testSnapshot()
	next.Products[0].Price = pricing.Units(99)
	s.ApplySnapshot(next)

	v := s.View()
	require.Len(t, v.Lines, 1)
	require.Equal(t, pricing.Units(10), v.Lines[0].UnitPrice)

	line, err := s.AddItem("p1", "")
	require.NoError(t, err)
	require.Equal(t, 2, line.Quantity)
	require.Equal(t, pricing.Units(10), line.UnitPrice)

	state, err := s.BeginCheckout()
	require.NoError(t, err)
	require.Equal(t, pricing.Units(10), state.Lines[0].UnitPrice)
	s.EndCheckout(false)
}
