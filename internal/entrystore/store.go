// Package entrystore keeps the active entries of one user and one metric in
// memory, ordered by entry date. It is the server-side view state that
// optimistic mutations update before the database does.
package entrystore

import (
	"sort"
	"sync"

	"fitflow/internal/domain"
)

// Store is an ordered collection of active entries. Entries are kept sorted
// by day ascending with ties broken by id.
type Store[E domain.Entry] struct {
	mu      sync.RWMutex
	entries []E
	loaded  bool
}

// New returns an empty, not yet loaded store.
func New[E domain.Entry]() *Store[E] {
	return &Store[E]{}
}

// Replace swaps the contents for entries, typically a fresh load from
// persistence, and marks the store loaded.
func (s *Store[E]) Replace(entries []E) {
	sorted := make([]E, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	s.mu.Lock()
	s.entries = sorted
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether Replace has been called.
func (s *Store[E]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// List returns a snapshot copy in display order.
func (s *Store[E]) List() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of active entries.
func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get looks up an entry by id.
func (s *Store[E]) Get(id int64) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.entries[i], true
	}
	var zero E
	return zero, false
}

// Insert places e at its sorted position and returns that position. An entry
// with the same id is replaced.
func (s *Store[E]) Insert(e E) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(e.EntryID()); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	pos := sort.Search(len(s.entries), func(i int) bool { return less(e, s.entries[i]) })
	var zero E
	s.entries = append(s.entries, zero)
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = e
	return pos
}

// Remove deletes the entry with the given id and returns it.
func (s *Store[E]) Remove(id int64) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		var zero E
		return zero, false
	}
	e := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return e, true
}

func (s *Store[E]) index(id int64) int {
	for i, e := range s.entries {
		if e.EntryID() == id {
			return i
		}
	}
	return -1
}

func less[E domain.Entry](a, b E) bool {
	if a.EntryDay() != b.EntryDay() {
		return a.EntryDay() < b.EntryDay()
	}
	return a.EntryID() < b.EntryID()
}
