package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStoreUnavailable indicates the database dependency is not configured.
var ErrStoreUnavailable = errors.New("journal: store unavailable")

// Store persists journal entries.
type Store interface {
	// Insert stores e and reports whether a new row was written.
	Insert(ctx context.Context, e Entry) (bool, error)
}

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewStore constructs a Store backed by a pgx pool.
func NewStore(db DB) Store {
	return &pgStore{db: db}
}

type pgStore struct {
	db DB
}

const insertEntry = `INSERT INTO checkout_journal
    (order_no, tenant_id, operator_id, session_id, store_id, status, final_amount, remote_id, payload, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
ON CONFLICT (tenant_id, order_no) DO NOTHING`

func (s *pgStore) Insert(ctx context.Context, e Entry) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrStoreUnavailable
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, insertEntry,
		e.OrderNo, e.TenantID, e.OperatorID, e.SessionID, e.StoreID, e.Status,
		int64(e.FinalAmount), e.RemoteID, []byte(e.Payload), e.SubmittedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
