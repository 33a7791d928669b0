package checkout

import (
	"strconv"
	"sync"
	"time"
)

// OrderNumberer generates order numbers of the form POS-<unix millis>.
// Numbers issued by one numberer are strictly increasing even when two
// requests land in the same millisecond.
type OrderNumberer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewOrderNumberer returns a numberer backed by the wall clock.
func NewOrderNumberer() *OrderNumberer {
	return &OrderNumberer{now: time.Now}
}

// Next returns the next order number.
func (o *OrderNumberer) Next() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now
	if o.now != nil {
		now = o.now
	}
	ms := now().UnixMilli()
	if ms <= o.last {
		ms = o.last + 1
	}
	o.last = ms
	return "POS-" + strconv.FormatInt(ms, 10)
}
