package entrystore

import (
	"sync"

	"fitflow/internal/domain"
)

// Registry hands out one Store per user.
type Registry[E domain.Entry] struct {
	mu     sync.Mutex
	stores map[int64]*Store[E]
}

// NewRegistry returns an empty registry.
func NewRegistry[E domain.Entry]() *Registry[E] {
	return &Registry[E]{stores: make(map[int64]*Store[E])}
}

// For returns the user's store, creating an empty one on first use.
func (r *Registry[E]) For(userID int64) *Store[E] {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[userID]
	if !ok {
		s = New[E]()
		r.stores[userID] = s
	}
	return s
}

// Drop forgets the user's store, e.g. on sign-out.
func (r *Registry[E]) Drop(userID int64) {
	r.mu.Lock()
	delete(r.stores, userID)
	r.mu.Unlock()
}
