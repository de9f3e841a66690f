// Package undo implements the process-wide queue of pending reversible
// actions. Each item carries a message, a restore callback and a countdown;
// the item disappears when its countdown elapses, when it is dismissed or
// when the user triggers the undo.
package undo

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fitflow/internal/clock"
)

// DefaultDuration is the undo window used when an item does not set one.
const DefaultDuration = 5 * time.Second

var (
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitflow_undo_items_total",
		Help: "Undo queue items by outcome (added, undone, dismissed, expired)",
	}, []string{"outcome"})

	itemsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fitflow_undo_items_pending",
		Help: "Undo queue items currently pending",
	})
)

// Item is a reversible action. OnUndo is invoked at most once.
type Item struct {
	UserID   int64
	Message  string
	Duration time.Duration
	OnUndo   func()
}

// View is a pending item as shown to its owner. Remaining is derived from
// the creation time, not from a decremented counter.
type View struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
	DurationMs  int64     `json:"durationMs"`
	RemainingMs int64     `json:"remainingMs"`
}

type pending struct {
	Item
	id        string
	createdAt time.Time
	timer     clock.Timer
}

// Queue holds pending items. It is safe for concurrent use; callbacks never
// run while the queue lock is held.
type Queue struct {
	clock           clock.Clock
	defaultDuration time.Duration

	mu    sync.Mutex
	items map[string]*pending
	order []string
}

// NewQueue builds a queue. A non-positive defaultDuration selects
// DefaultDuration.
func NewQueue(c clock.Clock, defaultDuration time.Duration) *Queue {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return &Queue{
		clock:           c,
		defaultDuration: defaultDuration,
		items:           make(map[string]*pending),
	}
}

// DefaultWindow returns the duration applied to items without one.
func (q *Queue) DefaultWindow() time.Duration {
	return q.defaultDuration
}

// Add registers it, starts its countdown and returns the new item id.
func (q *Queue) Add(it Item) string {
	if it.Duration <= 0 {
		it.Duration = q.defaultDuration
	}
	p := &pending{Item: it, id: uuid.NewString(), createdAt: q.clock.Now()}

	q.mu.Lock()
	q.items[p.id] = p
	q.order = append(q.order, p.id)
	p.timer = q.clock.AfterFunc(it.Duration, func() { q.expire(p) })
	q.mu.Unlock()

	itemsTotal.WithLabelValues("added").Inc()
	itemsPending.Inc()
	return p.id
}

// ExecuteUndo runs the item's OnUndo and removes it. It reports false, and
// does nothing, when the id is unknown, expired or already actioned.
func (q *Queue) ExecuteUndo(id string) bool {
	return q.undo(id, nil)
}

// ExecuteUndoFor is ExecuteUndo restricted to items owned by userID.
func (q *Queue) ExecuteUndoFor(userID int64, id string) bool {
	return q.undo(id, &userID)
}

// Dismiss removes the item without running OnUndo.
func (q *Queue) Dismiss(id string) bool {
	return q.dismiss(id, nil)
}

// DismissFor is Dismiss restricted to items owned by userID.
func (q *Queue) DismissFor(userID int64, id string) bool {
	return q.dismiss(id, &userID)
}

// List returns the user's pending items, oldest first.
func (q *Queue) List(userID int64) []View {
	now := q.clock.Now()
	q.mu.Lock()
	defer q.mu.Unlock()
	views := make([]View, 0)
	for _, id := range q.order {
		p := q.items[id]
		if p.UserID != userID {
			continue
		}
		remaining := p.Duration - now.Sub(p.createdAt)
		if remaining < 0 {
			remaining = 0
		}
		views = append(views, View{
			ID:          p.id,
			Message:     p.Message,
			CreatedAt:   p.createdAt,
			DurationMs:  p.Duration.Milliseconds(),
			RemainingMs: remaining.Milliseconds(),
		})
	}
	return views
}

// Len returns the number of pending items across all users.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) undo(id string, owner *int64) bool {
	p := q.take(id, owner)
	if p == nil {
		return false
	}
	p.timer.Stop()
	itemsTotal.WithLabelValues("undone").Inc()
	if p.OnUndo != nil {
		p.OnUndo()
	}
	return true
}

func (q *Queue) dismiss(id string, owner *int64) bool {
	p := q.take(id, owner)
	if p == nil {
		return false
	}
	p.timer.Stop()
	itemsTotal.WithLabelValues("dismissed").Inc()
	return true
}

func (q *Queue) expire(p *pending) {
	q.mu.Lock()
	if q.items[p.id] != p {
		q.mu.Unlock()
		return
	}
	q.remove(p.id)
	q.mu.Unlock()
	itemsTotal.WithLabelValues("expired").Inc()
}

// take removes and returns the item so that exactly one caller wins it.
func (q *Queue) take(id string, owner *int64) *pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.items[id]
	if !ok || (owner != nil && p.UserID != *owner) {
		return nil
	}
	q.remove(id)
	return p
}

// remove must be called with mu held.
func (q *Queue) remove(id string) {
	delete(q.items, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	itemsPending.Dec()
}
