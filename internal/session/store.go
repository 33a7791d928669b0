package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/obs"
)

// Params describes a new session.
type Params struct {
	TenantID        string
	OperatorID      string
	OperatorName    string
	BackofficeToken string
	Catalog         catalog.Snapshot
}

// Store keeps sessions in memory and expires them after an idle period.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore constructs a store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{sessions: make(map[string]*Session), ttl: ttl, now: time.Now}
}

// Create registers a new session.
func (st *Store) Create(p Params) *Session {
	now := st.now()
	sess := &Session{
		ID:           uuid.NewString(),
		TenantID:     p.TenantID,
		OperatorID:   p.OperatorID,
		OperatorName: p.OperatorName,
		CreatedAt:    now,
		token:        p.BackofficeToken,
		lastSeen:     now,
		catalog:      p.Catalog,
	}
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	n := len(st.sessions)
	st.mu.Unlock()
	setActive(n)
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := st.now()
	if st.expired(sess, now) {
		st.Delete(id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()
	setActive(n)
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes idle sessions and returns how many were dropped. Sessions
// with a checkout in flight are kept.
func (st *Store) Sweep() int {
	now := st.now()
	st.mu.Lock()
	removed := 0
	for id, sess := range st.sessions {
		if st.expired(sess, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()
	setActive(n)
	return removed
}

// Run sweeps on every interval until ctx is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Info().Int("expired", n).Msg("expired idle sessions")
			}
		}
	}
}

func (st *Store) expired(sess *Session, now time.Time) bool {
	if sess.Busy() {
		return false
	}
	return now.Sub(sess.idleSince()) > st.ttl
}

func setActive(n int) {
	if obs.ActiveSessions != nil {
		obs.ActiveSessions.Set(float64(n))
	}
}
