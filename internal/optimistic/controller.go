package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/entrystore"
	"fitflow/internal/undo"
)

// DefaultRemoteTimeout bounds each deferred remote call.
const DefaultRemoteTimeout = 10 * time.Second

var (
	deferredDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitflow_deferred_deletes_total",
		Help: "Deferred remote deletes by kind and result (ok, failed, cancelled)",
	}, []string{"kind", "result"})

	compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitflow_compensating_restores_total",
		Help: "Remote restores issued for undos that raced a fired delete",
	}, []string{"kind", "result"})
)

// Remote is the persistence side of one metric.
type Remote interface {
	Delete(ctx context.Context, userID, id int64) error
	Restore(ctx context.Context, userID, id int64) error
}

// RemoteFuncs adapts a pair of repository methods to Remote.
type RemoteFuncs struct {
	DeleteFn  func(ctx context.Context, userID, id int64) error
	RestoreFn func(ctx context.Context, userID, id int64) error
}

func (r RemoteFuncs) Delete(ctx context.Context, userID, id int64) error {
	return r.DeleteFn(ctx, userID, id)
}

func (r RemoteFuncs) Restore(ctx context.Context, userID, id int64) error {
	return r.RestoreFn(ctx, userID, id)
}

// Config wires a Controller.
type Config[E domain.Entry] struct {
	Kind   domain.Kind
	Noun   string // e.g. "Weight entry"
	Stores *entrystore.Registry[E]
	Queue  *undo.Queue
	Remote Remote

	// Optional.
	Outbox        domain.DeleteOutbox
	Notices       *undo.Notices
	Clock         clock.Clock
	RemoteTimeout time.Duration
	Logger        *slog.Logger
}

type key struct {
	userID int64
	id     int64
}

// Controller performs deletes with a timed undo for one metric kind.
type Controller[E domain.Entry] struct {
	cfg Config[E]

	mu      sync.Mutex
	pending map[key]*Task
	// undone logs whose remote delete has not returned yet
	undoing map[key]struct{}
	// undone deletes whose compensating restore has not returned yet
	restoring map[key]E
	wg        sync.WaitGroup
}

// New builds a Controller, filling optional fields with defaults.
func New[E domain.Entry](cfg Config[E]) *Controller[E] {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Noun == "" {
		cfg.Noun = string(cfg.Kind) + " entry"
	}
	return &Controller[E]{
		cfg:       cfg,
		pending:   make(map[key]*Task),
		undoing:   make(map[key]struct{}),
		restoring: make(map[key]E),
	}
}

// Kind returns the metric kind handled by c.
func (c *Controller[E]) Kind() domain.Kind { return c.cfg.Kind }

// Delete removes the entry from the user's store right away, registers an
// undo item and schedules the remote soft delete for when the undo window
// closes. It returns the undo item id.
func (c *Controller[E]) Delete(userID, id int64) (string, error) {
	store := c.cfg.Stores.For(userID)
	entry, ok := store.Remove(id)
	if !ok {
		return "", fmt.Errorf("%s %d: %w", c.cfg.Kind, id, domain.ErrNotFound)
	}

	k := key{userID: userID, id: id}
	window := c.cfg.Queue.DefaultWindow()
	var task *Task
	task = Schedule(c.cfg.Clock, window, func() error {
		defer c.forget(k, task)
		return c.finalizeDelete(userID, id)
	})

	c.mu.Lock()
	c.pending[k] = task
	c.mu.Unlock()

	undoID := c.cfg.Queue.Add(undo.Item{
		UserID:   userID,
		Message:  c.cfg.Noun + " deleted",
		Duration: window,
		OnUndo:   func() { c.undoDelete(userID, entry, task) },
	})
	return undoID, nil
}

// Log inserts an entry that was just created remotely and registers an undo
// item that takes it back out.
func (c *Controller[E]) Log(userID int64, entry E) string {
	c.cfg.Stores.For(userID).Insert(entry)
	return c.cfg.Queue.Add(undo.Item{
		UserID:  userID,
		Message: c.cfg.Noun + " logged",
		OnUndo:  func() { c.undoLog(userID, entry) },
	})
}

// Pending returns the ids of the user's entries whose deferred delete has not
// completed yet.
func (c *Controller[E]) Pending(userID int64) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int64
	for k := range c.pending {
		if k.userID == userID {
			ids = append(ids, k.id)
		}
	}
	return ids
}

// Hidden returns the ids that must stay out of the user's view even though
// persistence may still report them: deletes still inside their window,
// undone logs whose remote delete is in flight and deletes waiting in the
// outbox. Entries being restored by an undo are never hidden.
func (c *Controller[E]) Hidden(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	hidden := make(map[int64]struct{})
	c.mu.Lock()
	for k := range c.pending {
		if k.userID == userID {
			hidden[k.id] = struct{}{}
		}
	}
	for k := range c.undoing {
		if k.userID == userID {
			hidden[k.id] = struct{}{}
		}
	}
	c.mu.Unlock()

	var err error
	if c.cfg.Outbox != nil {
		var queued []domain.PendingDelete
		queued, err = c.cfg.Outbox.ListForUser(ctx, c.cfg.Kind, userID)
		if err != nil {
			err = fmt.Errorf("list outbox: %w", err)
		}
		for _, p := range queued {
			hidden[p.EntryID] = struct{}{}
		}
	}
	for _, e := range c.Restoring(userID) {
		delete(hidden, e.EntryID())
	}
	return hidden, err
}

// Restoring returns the user's undone deletes whose remote row may still be
// tombstoned. They stay visible until the compensating restore returns.
func (c *Controller[E]) Restoring(userID int64) []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []E
	for k, e := range c.restoring {
		if k.userID == userID {
			out = append(out, e)
		}
	}
	return out
}

// Flush runs every pending deferred delete immediately and waits for
// background work. Used on shutdown so no accepted delete is lost.
func (c *Controller[E]) Flush(ctx context.Context) error {
	c.mu.Lock()
	tasks := make([]*Task, 0, len(c.pending))
	for _, t := range c.pending {
		tasks = append(tasks, t)
	}
	c.mu.Unlock()

	for _, t := range tasks {
		t.Fire()
	}
	return c.Wait(ctx)
}

// Wait blocks until background restores and deletes started by undos finish.
func (c *Controller[E]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller[E]) forget(k key, t *Task) {
	c.mu.Lock()
	if c.pending[k] == t {
		delete(c.pending, k)
	}
	c.mu.Unlock()
}

func (c *Controller[E]) finalizeDelete(userID, id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RemoteTimeout)
	defer cancel()
	err := c.cfg.Remote.Delete(ctx, userID, id)
	if err == nil {
		deferredDeletes.WithLabelValues(string(c.cfg.Kind), "ok").Inc()
		return nil
	}
	deferredDeletes.WithLabelValues(string(c.cfg.Kind), "failed").Inc()
	c.cfg.Logger.Error("deferred delete failed",
		"kind", c.cfg.Kind, "user_id", userID, "entry_id", id, "err", err)
	c.enqueue(ctx, userID, id, err)
	return err
}

func (c *Controller[E]) undoDelete(userID int64, entry E, task *Task) {
	k := key{userID: userID, id: entry.EntryID()}
	if task.Cancel() {
		deferredDeletes.WithLabelValues(string(c.cfg.Kind), "cancelled").Inc()
		c.forget(k, task)
	} else {
		// The remote delete already started; put the row back once it is done.
		c.mu.Lock()
		c.restoring[k] = entry
		if c.pending[k] == task {
			delete(c.pending, k)
		}
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			<-task.Done()
			c.compensate(userID, k.id, task.Err())
			c.mu.Lock()
			delete(c.restoring, k)
			c.mu.Unlock()
		}()
	}
	c.cfg.Stores.For(userID).Insert(entry)
	c.notify(userID, c.cfg.Noun+" restored")
}

func (c *Controller[E]) compensate(userID, id int64, deleteErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RemoteTimeout)
	defer cancel()
	kind := string(c.cfg.Kind)

	if deleteErr != nil {
		// The row was never deleted; only the outbox record needs to go.
		c.dequeue(ctx, userID, id)
		compensations.WithLabelValues(kind, "skipped").Inc()
		return
	}
	if err := c.cfg.Remote.Restore(ctx, userID, id); err != nil {
		compensations.WithLabelValues(kind, "failed").Inc()
		c.cfg.Logger.Error("compensating restore failed",
			"kind", c.cfg.Kind, "user_id", userID, "entry_id", id, "err", err)
		return
	}
	compensations.WithLabelValues(kind, "ok").Inc()
}

func (c *Controller[E]) undoLog(userID int64, entry E) {
	id := entry.EntryID()
	k := key{userID: userID, id: id}
	c.mu.Lock()
	c.undoing[k] = struct{}{}
	c.mu.Unlock()
	c.cfg.Stores.For(userID).Remove(id)
	c.notify(userID, c.cfg.Noun+" removed")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.undoing, k)
			c.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RemoteTimeout)
		defer cancel()
		if err := c.cfg.Remote.Delete(ctx, userID, id); err != nil {
			c.cfg.Logger.Error("undo of log failed",
				"kind", c.cfg.Kind, "user_id", userID, "entry_id", id, "err", err)
			c.enqueue(ctx, userID, id, err)
		}
	}()
}

func (c *Controller[E]) enqueue(ctx context.Context, userID, id int64, cause error) {
	if c.cfg.Outbox == nil {
		return
	}
	p := domain.PendingDelete{
		Kind:      c.cfg.Kind,
		UserID:    userID,
		EntryID:   id,
		Attempts:  1,
		LastError: cause.Error(),
		FailedAt:  c.cfg.Clock.Now(),
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		// The call timed out; use a fresh context so the record is not lost.
		ctx = context.Background()
	}
	if err := c.cfg.Outbox.Put(ctx, p); err != nil {
		c.cfg.Logger.Error("outbox put failed",
			"kind", c.cfg.Kind, "user_id", userID, "entry_id", id, "err", err)
	}
}

func (c *Controller[E]) dequeue(ctx context.Context, userID, id int64) {
	if c.cfg.Outbox == nil {
		return
	}
	if err := c.cfg.Outbox.Remove(ctx, c.cfg.Kind, userID, id); err != nil {
		c.cfg.Logger.Warn("outbox remove failed",
			"kind", c.cfg.Kind, "user_id", userID, "entry_id", id, "err", err)
	}
}

func (c *Controller[E]) notify(userID int64, msg string) {
	if c.cfg.Notices != nil {
		c.cfg.Notices.Push(userID, msg)
	}
}
