package app

import (
	"context"
	"fmt"
	"log/slog"

	"fitflow/internal/domain"
	"fitflow/internal/entrystore"
	"fitflow/internal/optimistic"
)

// entryRepo is the persistence surface every metric shares.
type entryRepo[E domain.Entry] struct {
	list        func(ctx context.Context, userID int64) ([]E, error)
	listDeleted func(ctx context.Context, userID int64) ([]E, error)
	remove      func(ctx context.Context, userID, id int64) error
	restore     func(ctx context.Context, userID, id int64) error
	purge       func(ctx context.Context, userID, id int64) error
}

// entries implements history, delete-with-undo and trash for one metric on
// top of the user's in-memory entry store.
type entries[E domain.Entry] struct {
	kind   domain.Kind
	repo   entryRepo[E]
	stores *entrystore.Registry[E]
	ctrl   *optimistic.Controller[E]
	deps   Deps
	log    *slog.Logger
}

func newEntries[E domain.Entry](kind domain.Kind, noun string, repo entryRepo[E], deps Deps) entries[E] {
	deps = deps.withDefaults()
	stores := entrystore.NewRegistry[E]()
	ctrl := optimistic.New(optimistic.Config[E]{
		Kind:   kind,
		Noun:   noun,
		Stores: stores,
		Queue:  deps.Queue,
		Remote: optimistic.RemoteFuncs{
			DeleteFn:  repo.remove,
			RestoreFn: repo.restore,
		},
		Outbox:        deps.Outbox,
		Notices:       deps.Notices,
		Clock:         deps.Clock,
		RemoteTimeout: deps.RemoteTimeout,
		Logger:        deps.Logger,
	})
	return entries[E]{
		kind:   kind,
		repo:   repo,
		stores: stores,
		ctrl:   ctrl,
		deps:   deps,
		log:    deps.Logger.With("kind", kind),
	}
}

// History reloads the user's active entries from persistence, hides entries
// whose delete is still pending or queued for retry, keeps undone deletes
// visible, and returns them in date order.
func (s *entries[E]) History(ctx context.Context, userID int64) ([]E, error) {
	rows, err := s.repo.list(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", s.kind, err)
	}
	hidden, err := s.ctrl.Hidden(ctx, userID)
	if err != nil {
		s.log.Warn("could not read pending deletes", "user_id", userID, "err", err)
	}
	visible := rows[:0:0]
	seen := make(map[int64]struct{}, len(rows))
	for _, e := range rows {
		seen[e.EntryID()] = struct{}{}
		if _, ok := hidden[e.EntryID()]; !ok {
			visible = append(visible, e)
		}
	}
	// Undone deletes stay visible while their row is still tombstoned.
	for _, e := range s.ctrl.Restoring(userID) {
		if _, ok := seen[e.EntryID()]; !ok {
			visible = append(visible, e)
		}
	}
	store := s.stores.For(userID)
	store.Replace(visible)
	return store.List(), nil
}

// View returns the user's entries from memory, loading them on first use.
func (s *entries[E]) View(ctx context.Context, userID int64) ([]E, error) {
	store := s.stores.For(userID)
	if store.Loaded() {
		return store.List(), nil
	}
	return s.History(ctx, userID)
}

// Delete hides the entry immediately and returns the undo id. The database
// row is soft-deleted once the undo window closes.
func (s *entries[E]) Delete(ctx context.Context, userID, id int64) (string, error) {
	if _, err := s.View(ctx, userID); err != nil {
		return "", err
	}
	return s.ctrl.Delete(userID, id)
}

// Trash lists the user's soft-deleted entries.
func (s *entries[E]) Trash(ctx context.Context, userID int64) ([]E, error) {
	rows, err := s.repo.listDeleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list deleted %s entries: %w", s.kind, err)
	}
	return rows, nil
}

// Restore clears the tombstone of a soft-deleted entry and re-syncs the
// user's view.
func (s *entries[E]) Restore(ctx context.Context, userID, id int64) error {
	if err := s.repo.restore(ctx, userID, id); err != nil {
		return fmt.Errorf("restore %s %d: %w", s.kind, id, err)
	}
	_, err := s.History(ctx, userID)
	return err
}

// Purge permanently removes a soft-deleted entry. It is not exposed over
// HTTP.
func (s *entries[E]) Purge(ctx context.Context, userID, id int64) error {
	if err := s.repo.purge(ctx, userID, id); err != nil {
		return fmt.Errorf("purge %s %d: %w", s.kind, id, err)
	}
	return nil
}

// PendingDeletes returns the ids whose delete has not reached the database.
func (s *entries[E]) PendingDeletes(userID int64) []int64 {
	return s.ctrl.Pending(userID)
}

// Flush finalizes pending deletes; called on shutdown.
func (s *entries[E]) Flush(ctx context.Context) error {
	return s.ctrl.Flush(ctx)
}

// Forget drops the user's cached view.
func (s *entries[E]) Forget(userID int64) {
	s.stores.Drop(userID)
}

// RemoveFunc exposes the soft delete for the reconciler.
func (s *entries[E]) RemoveFunc() func(ctx context.Context, userID, id int64) error {
	return s.repo.remove
}

func (s *entries[E]) logged(userID int64, e E) string {
	return s.ctrl.Log(userID, e)
}
