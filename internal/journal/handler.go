package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/obs"
)

// Handler processes checkout journal tasks.
type Handler struct {
	Store  Store
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Entry
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		record("invalid")
		return fmt.Errorf("journal: decode task: %v: %w", err, asynq.SkipRetry)
	}
	if err := e.Validate(); err != nil {
		record("invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	inserted, err := h.Store.Insert(ctx, e)
	if err != nil {
		record("error")
		if errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		h.Logger.Error().Err(err).Str("order_no", e.OrderNo).Msg("journal insert failed")
		return fmt.Errorf("journal: insert %s: %w", e.OrderNo, err)
	}
	if !inserted {
		record("duplicate")
		h.Logger.Debug().Str("order_no", e.OrderNo).Msg("journal entry already recorded")
		return nil
	}
	record("success")
	h.Logger.Info().Str("order_no", e.OrderNo).Str("tenant_id", e.TenantID).Msg("checkout journaled")
	return nil
}

// Register mounts the handler on mux.
func (h Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeCheckoutJournal, h)
}

func record(result string) {
	if obs.JournalWritesTotal != nil {
		obs.JournalWritesTotal.WithLabelValues(result).Inc()
	}
}
