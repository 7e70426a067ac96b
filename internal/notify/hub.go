// Package notify fans newly recorded breaches out to live subscribers.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Alert is the payload pushed for a newly created breach.
type Alert struct {
	BreachID   uint64         `json:"breach_id"`
	UserID     uint64         `json:"user_id"`
	RuleKey    string         `json:"rule_key"`
	Scope      string         `json:"scope"`
	DateOrWeek string         `json:"date_or_week"`
	Subject    string         `json:"subject,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Hub delivers alerts to in-process subscribers keyed by user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]map[chan Alert]struct{}
	logger *zap.Logger

	dropped uint64
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{subs: map[uint64]map[chan Alert]struct{}{}, logger: logger}
}

// Subscribe returns a channel of the user's alerts and a cancel func that closes it.
func (h *Hub) Subscribe(userID uint64, buf int) (<-chan Alert, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Alert, buf)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan Alert]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks: a slow subscriber loses the alert.
func (h *Hub) Publish(_ context.Context, alert Alert) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[alert.UserID] {
		select {
		case ch <- alert:
		default:
			n := atomic.AddUint64(&h.dropped, 1)
			if h.logger != nil {
				h.logger.Warn("breach alert dropped",
					zap.Uint64("user_id", alert.UserID),
					zap.Uint64("breach_id", alert.BreachID),
					zap.Uint64("dropped_total", n),
				)
			}
		}
	}
	return nil
}

func (h *Hub) Subscribers(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
