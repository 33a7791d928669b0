package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/backoffice"
	"github.com/noah-isme/toko-pos/internal/journal"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/session"
)

// ErrSubmissionInFlight is returned when the session already has a checkout outstanding.
var ErrSubmissionInFlight = session.ErrCheckoutInFlight

// SubmissionError reports a failed order submission. The cart is kept.
type SubmissionError struct {
	OrderNo string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("checkout: submit %s: %v", e.OrderNo, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// OrderCreator posts a payload to the order service.
type OrderCreator interface {
	CreateOrder(ctx context.Context, cred backoffice.Credentials, payload any) (backoffice.OrderReceipt, error)
}

// JournalPublisher records successful checkouts.
type JournalPublisher interface {
	Publish(ctx context.Context, e journal.Entry) error
}

// Result is returned for a successful checkout.
type Result struct {
	OrderNo string                  `json:"orderNo"`
	Receipt backoffice.OrderReceipt `json:"receipt"`
	Payload Payload                 `json:"payload"`
}

// Service submits session carts to the order service.
type Service struct {
	Orders  OrderCreator
	Journal JournalPublisher
	Numbers *OrderNumberer
	// StoreID overrides the store derived from the catalog.
	StoreID string
	Timeout time.Duration
	Logger  zerolog.Logger

	now func() time.Time
}

// Submit builds the payload from the session's current state and posts it.
// At most one submission per session runs at a time. The outbound call is
// not cancelled when ctx is, but it is bounded by Timeout. On success the
// cart, discount and customer are cleared.
func (s *Service) Submit(ctx context.Context, sess *session.Session, status Status) (Result, error) {
	if s == nil || s.Orders == nil {
		return Result{}, errors.New("checkout: service not configured")
	}
	state, err := sess.BeginCheckout()
	if err != nil {
		return Result{}, err
	}
	success := false
	defer func() { sess.EndCheckout(success) }()

	storeID := strings.TrimSpace(s.StoreID)
	if storeID == "" {
		storeID = state.StoreID
	}
	payload, err := Build(BuildInput{
		OrderNo:    s.numbers().Next(),
		StoreID:    storeID,
		Lines:      state.Lines,
		Discount:   state.Discount,
		CustomerID: state.CustomerID,
		Config:     state.Config,
		Status:     status,
	})
	if err != nil {
		return Result{}, err
	}

	logger := s.Logger.With().
		Str("order_no", payload.OrderNo).
		Str("session_id", sess.ID).
		Str("tenant_id", sess.TenantID).
		Logger()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout())
	defer cancel()
	start := time.Now()
	receipt, err := s.Orders.CreateOrder(callCtx, sess.Credentials(), payload)
	elapsed := time.Since(start)
	if err != nil {
		recordSubmission(payload, "error", elapsed)
		logger.Warn().Err(err).Msg("order submission failed")
		return Result{}, &SubmissionError{OrderNo: payload.OrderNo, Err: err}
	}
	success = true
	recordSubmission(payload, "success", elapsed)
	logger.Info().
		Str("status", string(payload.Status)).
		Str("final_amount", payload.FinalAmount.String()).
		Int("lines", len(payload.Items)).
		Msg("order submitted")

	s.journal(context.WithoutCancel(ctx), sess, payload, receipt, logger)
	return Result{OrderNo: payload.OrderNo, Receipt: receipt, Payload: payload}, nil
}

func (s *Service) journal(ctx context.Context, sess *session.Session, p Payload, receipt backoffice.OrderReceipt, logger zerolog.Logger) {
	if s.Journal == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		logger.Error().Err(err).Msg("encode journal payload")
		return
	}
	entry := journal.Entry{
		OrderNo:     p.OrderNo,
		TenantID:    sess.TenantID,
		OperatorID:  sess.OperatorID,
		SessionID:   sess.ID,
		StoreID:     p.StoreID,
		Status:      string(p.Status),
		FinalAmount: p.FinalAmount,
		RemoteID:    receipt.ID,
		Payload:     body,
		SubmittedAt: s.clock(),
	}
	if err := s.Journal.Publish(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("enqueue checkout journal")
	}
}

var defaultNumbers = NewOrderNumberer()

func (s *Service) numbers() *OrderNumberer {
	if s.Numbers == nil {
		return defaultNumbers
	}
	return s.Numbers
}

func (s *Service) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 15 * time.Second
	}
	return s.Timeout
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func recordSubmission(p Payload, result string, elapsed time.Duration) {
	if obs.CheckoutSubmissionsTotal != nil {
		obs.CheckoutSubmissionsTotal.WithLabelValues(string(p.Status), result).Inc()
	}
	if obs.CheckoutSubmitLatency != nil {
		obs.CheckoutSubmitLatency.WithLabelValues(result).Observe(obs.DurationMillis(elapsed))
	}
	if result == "success" && obs.CartGrandTotal != nil {
		obs.CartGrandTotal.Observe(float64(p.FinalAmount))
	}
}
