// Package journal records successful checkouts in Postgres through an
// asynq task so the terminal never waits on the database.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// TypeCheckoutJournal is the asynq task type for journal writes.
const TypeCheckoutJournal = "checkout:journal"

// ErrInvalidEntry is returned for entries missing required fields.
var ErrInvalidEntry = errors.New("journal: invalid entry")

// Entry is one submitted checkout.
type Entry struct {
	OrderNo     string          `json:"orderNo"`
	TenantID    string          `json:"tenantId"`
	OperatorID  string          `json:"operatorId"`
	SessionID   string          `json:"sessionId"`
	StoreID     string          `json:"storeId"`
	Status      string          `json:"status"`
	FinalAmount pricing.Money   `json:"finalAmount"`
	RemoteID    string          `json:"remoteId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// Validate checks the fields the table requires.
func (e Entry) Validate() error {
	switch {
	case strings.TrimSpace(e.OrderNo) == "":
		return fmt.Errorf("%w: orderNo is required", ErrInvalidEntry)
	case strings.TrimSpace(e.TenantID) == "":
		return fmt.Errorf("%w: tenantId is required", ErrInvalidEntry)
	case len(e.Payload) == 0 || !json.Valid(e.Payload):
		return fmt.Errorf("%w: payload must be JSON", ErrInvalidEntry)
	case e.SubmittedAt.IsZero():
		return fmt.Errorf("%w: submittedAt is required", ErrInvalidEntry)
	}
	return nil
}

// TaskID is the asynq task id for e. Order numbers are only unique within a
// tenant, so the tenant is part of the id.
func TaskID(e Entry) string {
	return "journal:" + e.TenantID + ":" + e.OrderNo
}

// NewTask encodes the entry as an asynq task. A duplicate enqueue of the
// same tenant order is rejected by asynq through the task id.
func NewTask(e Entry, opts ...asynq.Option) (*asynq.Task, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("journal: encode entry: %w", err)
	}
	opts = append([]asynq.Option{asynq.TaskID(TaskID(e)), asynq.MaxRetry(10)}, opts...)
	return asynq.NewTask(TypeCheckoutJournal, body, opts...), nil
}

// Enqueuer is implemented by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher enqueues journal tasks.
type Publisher struct {
	Client Enqueuer
	Queue  string
}

// Publish enqueues e. A task already queued for the same order is not an error.
func (p Publisher) Publish(ctx context.Context, e Entry) error {
	if p.Client == nil {
		return errors.New("journal: publisher not configured")
	}
	var opts []asynq.Option
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	task, err := NewTask(e, opts...)
	if err != nil {
		return err
	}
	if _, err := p.Client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("journal: enqueue %s: %w", e.OrderNo, err)
	}
	return nil
}
