// Package backoffice is a typed client for the remote POS back-office REST API.
package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pos/internal/resilience"
)

// ErrUnauthorized is returned when the back-office rejects the bearer token or credentials.
var ErrUnauthorized = errors.New("backoffice: unauthorized")

// TenantHeader carries the tenant identifier on every request.
const TenantHeader = "X-Tenant-ID"

// APIError reports a failed call with the upstream status and message.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backoffice: %s: %d %s", e.Op, e.Status, msg)
}

// Unwrap maps authentication failures to ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// Credentials identify the operator on authenticated calls.
type Credentials struct {
	Token    string
	TenantID string
}

// Doer executes an HTTP request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker *resilience.Breaker
	// ReadAttempts bounds retries of idempotent reads. Writes are sent once.
	ReadAttempts int
	// HTTP overrides the transport; mainly for tests.
	HTTP *http.Client
}

// Client talks to the back-office API.
type Client struct {
	base *url.URL
	doer Doer
}

// New builds a client with an otelhttp-instrumented transport behind the
// breaker.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backoffice: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("backoffice: parse base url: %w", err)
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: base,
		doer: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     cfg.Breaker,
			MaxAttempts: cfg.ReadAttempts,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}, nil
}

// NewWithDoer builds a client over an arbitrary Doer.
func NewWithDoer(baseURL string, doer Doer) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("backoffice: parse base url: %w", err)
	}
	return &Client{base: base, doer: doer}, nil
}

// Login exchanges operator credentials for a bearer token.
func (c *Client) Login(ctx context.Context, tenantID, username, password string) (LoginResult, error) {
	body := map[string]string{"tenantId": tenantID, "username": username, "password": password}
	var out LoginResult
	err := c.call(ctx, "login", http.MethodPost, "/api/users/login", Credentials{TenantID: tenantID}, body, &out)
	if err == nil && out.Token == "" {
		err = &APIError{Op: "login", Status: http.StatusBadGateway, Message: "token missing from response"}
	}
	return out, err
}

// Products lists the tenant's products.
func (c *Client) Products(ctx context.Context, cred Credentials) ([]Product, error) {
	var out []Product
	err := c.call(ctx, "products", http.MethodGet, "/api/products", cred, nil, &out)
	return out, err
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context, cred Credentials) ([]Category, error) {
	var out []Category
	err := c.call(ctx, "categories", http.MethodGet, "/api/categories", cred, nil, &out)
	return out, err
}

// Customers lists loyalty customers.
func (c *Client) Customers(ctx context.Context, cred Credentials) ([]Customer, error) {
	var out []Customer
	err := c.call(ctx, "customers", http.MethodGet, "/api/customers", cred, nil, &out)
	return out, err
}

// Discounts lists the discounts available at the terminal.
func (c *Client) Discounts(ctx context.Context, cred Credentials) ([]Discount, error) {
	var out []Discount
	err := c.call(ctx, "discounts", http.MethodGet, "/api/discounts", cred, nil, &out)
	return out, err
}

// MyTenant returns the operator's tenant and its configuration.
func (c *Client) MyTenant(ctx context.Context, cred Credentials) (Tenant, error) {
	var out Tenant
	err := c.call(ctx, "tenant", http.MethodGet, "/api/tenants/me", cred, nil, &out)
	return out, err
}

// CreateOrder submits a checkout payload to the order service.
func (c *Client) CreateOrder(ctx context.Context, cred Credentials, payload any) (OrderReceipt, error) {
	var out OrderReceipt
	err := c.call(ctx, "create order", http.MethodPost, "/api/orders", cred, payload, &out)
	return out, err
}

// TrackOrder fetches the public status of an order. No credentials are needed.
func (c *Client) TrackOrder(ctx context.Context, orderNo string) (TrackedOrder, error) {
	var out TrackedOrder
	err := c.call(ctx, "track order", http.MethodGet, "/api/orders/track/"+url.PathEscape(orderNo), Credentials{}, nil, &out)
	return out, err
}

// Ping checks that the back-office is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{Op: "ping", Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, method, path string, cred Credentials, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backoffice: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("backoffice: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}
	if cred.TenantID != "" {
		req.Header.Set(TenantHeader, cred.TenantID)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("backoffice: %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("backoffice: %s: read body: %w", op, err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("backoffice: %s: decode envelope: %w", op, decodeErr)
	}
	if !env.Success {
		return &APIError{Op: op, Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("backoffice: %s: decode data: %w", op, err)
	}
	return nil
}
