package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", HTTP: srv.Client(), Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func TestLoginSendsTenantAndReturnsToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/users/login", r.URL.Path)
		require.Equal(t, "t1", r.Header.Get(TenantHeader))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "cashier", body["username"])
		require.Equal(t, "t1", body["tenantId"])
		writeEnvelope(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"_id": "u1", "username": "cashier"},
		})
	}))

	res, err := c.Login(context.Background(), "t1", "cashier", "secret")
	require.NoError(t, err)
	require.Equal(t, "tok-1", res.Token)
	require.Equal(t, "u1", res.User.ID)
}

func TestLoginRejectedMapsToUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"Invalid credentials"}`)
	}))

	_, err := c.Login(context.Background(), "t1", "cashier", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestProductsDecodesPricesAndCategoryRefs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"_id":"p1","name":"Coffee","sku":"CF-1","price":12.5,"storeId":"S1","categoryId":"c1"},
			{"_id":"p2","name":"Tea","price":"3.333","categoryId":{"_id":"c2","name":"Drinks"},
			 "hasVariants":true,"variants":[{"_id":"v1","name":"Large","price":4}]}
		]}`)
	}))

	products, err := c.Products(context.Background(), Credentials{Token: "tok", TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, pricing.Money(1250), products[0].Price)
	require.Equal(t, "c1", products[0].Category.ID)
	require.Equal(t, pricing.Money(333), products[1].Price)
	require.Equal(t, "c2", products[1].Category.ID)
	require.Equal(t, "Drinks", products[1].Category.Name)
	v, ok := products[1].Variant("v1")
	require.True(t, ok)
	require.Equal(t, pricing.Units(4), v.Price)
}

func TestSuccessFalseIsError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"tenant suspended"}`)
	}))

	_, err := c.Discounts(context.Background(), Credentials{Token: "tok"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "tenant suspended", apiErr.Message)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestDiscountPricingConversion(t *testing.T) {
	var records []Discount
	require.NoError(t, json.Unmarshal([]byte(`[
		{"_id":"d1","name":"Ten","type":"PERCENTAGE","value":10},
		{"_id":"d2","name":"Five off","type":"fixed","value":5.5},
		{"_id":"d3","name":"Bad","type":"BOGO","value":1},
		{"_id":"d4","name":"Too much","type":"PERCENTAGE","value":150}
	]`), &records))

	d1, err := records[0].Pricing()
	require.NoError(t, err)
	require.Equal(t, pricing.DiscountPercentage, d1.Kind)
	require.Equal(t, pricing.Percent(1000), d1.Percent)

	d2, err := records[1].Pricing()
	require.NoError(t, err)
	require.Equal(t, pricing.DiscountFixed, d2.Kind)
	require.Equal(t, pricing.Money(550), d2.Fixed)

	_, err = records[2].Pricing()
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)
	_, err = records[3].Pricing()
	require.ErrorIs(t, err, pricing.ErrInvalidDiscount)
}

func TestCreateOrderPostsPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "POS-1", body["orderNo"])
		writeEnvelope(w, http.StatusCreated, map[string]any{"_id": "o1", "orderNo": "POS-1", "status": "paid"})
	}))

	receipt, err := c.CreateOrder(context.Background(), Credentials{Token: "tok"}, map[string]any{"orderNo": "POS-1"})
	require.NoError(t, err)
	require.Equal(t, "o1", receipt.ID)
}

func TestServerErrorReturnsAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.CreateOrder(context.Background(), Credentials{Token: "tok"}, map[string]any{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestOpenBreakerShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "backoffice", MinRequests: 1, OpenFor: time.Minute})
	c, err := New(Config{BaseURL: srv.URL, HTTP: srv.Client(), Breaker: breaker})
	require.NoError(t, err)

	_, err = c.Categories(context.Background(), Credentials{})
	require.Error(t, err)
	_, err = c.Categories(context.Background(), Credentials{})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 1, calls)
}

func TestReadsRetryButWritesDoNot(t *testing.T) {
	var reads, writes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reads++
			if reads == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeEnvelope(w, http.StatusOK, []map[string]any{{"id": "c1", "name": "Drinks"}})
			return
		}
		writes++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, HTTP: srv.Client(), ReadAttempts: 2})
	require.NoError(t, err)

	cats, err := c.Categories(context.Background(), Credentials{Token: "t"})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, 2, reads)

	_, err = c.Login(context.Background(), "t1", "cashier", "secret")
	require.Error(t, err)
	require.Equal(t, 1, writes)
}

func TestTrackOrderEscapesNumber(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/track/POS-42", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"orderNo": "POS-42", "status": "paid", "finalAmount": 10.5,
			"items": []map[string]any{{"nameSnapshot": "Coffee", "qty": 2}},
		})
	}))

	order, err := c.TrackOrder(context.Background(), "POS-42")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(1050), order.FinalAmount)
	require.Len(t, order.Items, 1)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
