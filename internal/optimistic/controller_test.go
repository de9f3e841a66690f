package optimistic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/entrystore"
	"fitflow/internal/optimistic"
	"fitflow/internal/undo"
)

type fakeRemote struct {
	mu        sync.Mutex
	deletes   []int64
	restores  []int64
	deleteErr error
	// When gate is set, Delete closes entered and blocks until gate is closed.
	gate    chan struct{}
	entered chan struct{}
}

func (r *fakeRemote) Delete(_ context.Context, _, id int64) error {
	if r.gate != nil {
		close(r.entered)
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, id)
	return r.deleteErr
}

func (r *fakeRemote) Restore(_ context.Context, _, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores = append(r.restores, id)
	return nil
}

func (r *fakeRemote) calls() (deletes, restores []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.deletes...), append([]int64(nil), r.restores...)
}

type fakeOutbox struct {
	mu    sync.Mutex
	items map[string]domain.PendingDelete
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{items: make(map[string]domain.PendingDelete)}
}

func (o *fakeOutbox) Put(_ context.Context, p domain.PendingDelete) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[p.Key()] = p
	return nil
}

func (o *fakeOutbox) Remove(_ context.Context, kind domain.Kind, userID, entryID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, domain.PendingDelete{Kind: kind, UserID: userID, EntryID: entryID}.Key())
	return nil
}

func (o *fakeOutbox) List(_ context.Context) ([]domain.PendingDelete, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.PendingDelete
	for _, p := range o.items {
		out = append(out, p)
	}
	return out, nil
}

func (o *fakeOutbox) ListForUser(ctx context.Context, kind domain.Kind, userID int64) ([]domain.PendingDelete, error) {
	all, err := o.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.PendingDelete
	for _, p := range all {
		if p.Kind == kind && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fixture struct {
	clock   *clock.Fake
	queue   *undo.Queue
	notices *undo.Notices
	stores  *entrystore.Registry[domain.WeightEntry]
	remote  *fakeRemote
	outbox  *fakeOutbox
	ctrl    *optimistic.Controller[domain.WeightEntry]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		stores: entrystore.NewRegistry[domain.WeightEntry](),
		remote: &fakeRemote{},
		outbox: newFakeOutbox(),
	}
	f.queue = undo.NewQueue(f.clock, 5*time.Second)
	f.notices = undo.NewNotices(f.clock)
	f.ctrl = optimistic.New(optimistic.Config[domain.WeightEntry]{
		Kind:    domain.KindWeight,
		Noun:    "Weight entry",
		Stores:  f.stores,
		Queue:   f.queue,
		Remote:  f.remote,
		Outbox:  f.outbox,
		Notices: f.notices,
		Clock:   f.clock,
	})
	f.stores.For(1).Replace([]domain.WeightEntry{
		{ID: 1, Day: "2026-02-27", Value: 182},
		{ID: 2, Day: "2026-02-28", Value: 181},
		{ID: 3, Day: "2026-03-01", Value: 180},
	})
	return f
}

func (f *fixture) ids() []int64 {
	var ids []int64
	for _, e := range f.stores.For(1).List() {
		ids = append(ids, e.ID)
	}
	return ids
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.ctrl.Wait(ctx))
}

func TestDeleteRemovesSynchronously(t *testing.T) {
	f := newFixture(t)
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, undoID)

	assert.Equal(t, []int64{1, 3}, f.ids())
	deletes, _ := f.remote.calls()
	assert.Empty(t, deletes, "remote delete must wait for the window")
	assert.Equal(t, []int64{2}, f.ctrl.Pending(1))
}

func TestDeleteUnknownEntry(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Delete(1, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.queue.Len())
}

func TestUndoWithinWindowRestoresOrderAndSkipsRemote(t *testing.T) {
	f := newFixture(t)
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Second)
	require.True(t, f.queue.ExecuteUndo(undoID))
	assert.Equal(t, []int64{1, 2, 3}, f.ids())

	f.clock.Advance(time.Minute)
	deletes, restores := f.remote.calls()
	assert.Empty(t, deletes)
	assert.Empty(t, restores)
	assert.Empty(t, f.ctrl.Pending(1))

	notices := f.notices.Drain(1)
	require.Len(t, notices, 1)
	assert.Equal(t, "Weight entry restored", notices[0].Message)
}

func TestWindowElapsesDeletesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Second)
	f.clock.Advance(time.Minute)

	deletes, _ := f.remote.calls()
	assert.Equal(t, []int64{2}, deletes)
	assert.False(t, f.queue.ExecuteUndo(undoID), "undo after expiry is a no-op")
	assert.Equal(t, []int64{1, 3}, f.ids())
	assert.Empty(t, f.ctrl.Pending(1))
}

func TestDismissStillDeletes(t *testing.T) {
	f := newFixture(t)
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	require.True(t, f.queue.Dismiss(undoID))
	f.clock.Advance(5 * time.Second)

	deletes, _ := f.remote.calls()
	assert.Equal(t, []int64{2}, deletes)
	assert.Equal(t, []int64{1, 3}, f.ids())
}

func TestFailedDeleteGoesToOutbox(t *testing.T) {
	f := newFixture(t)
	f.remote.deleteErr = errors.New("db down")
	_, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Second)

	assert.Equal(t, []int64{1, 3}, f.ids(), "local state is not rolled back")
	queued, _ := f.outbox.ListForUser(context.Background(), domain.KindWeight, 1)
	require.Len(t, queued, 1)
	assert.Equal(t, int64(2), queued[0].EntryID)
	assert.Equal(t, 1, queued[0].Attempts)
	assert.Equal(t, "db down", queued[0].LastError)

	hidden, err := f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, hidden, int64(2))
}

func TestHiddenIncludesInFlightDeletes(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Delete(1, 3)
	require.NoError(t, err)

	hidden, err := f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{3: {}}, hidden)

	other, err := f.ctrl.Hidden(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUndoAfterDeleteFiredCompensates(t *testing.T) {
	f := newFixture(t)
	f.remote.gate = make(chan struct{})
	f.remote.entered = make(chan struct{})
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	// The delete task and the queue item share a deadline; fire the task on
	// its own goroutine so the undo arrives while the delete is in flight.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.clock.Advance(5 * time.Second)
	}()
	select {
	case <-f.remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("remote delete never started")
	}
	require.Equal(t, 1, f.queue.Len())

	require.True(t, f.queue.ExecuteUndo(undoID))
	assert.Equal(t, []int64{1, 2, 3}, f.ids())

	// A reload while the row is still being deleted must keep it visible.
	hidden, err := f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.NotContains(t, hidden, int64(2))
	assert.Empty(t, f.ctrl.Pending(1))
	require.Len(t, f.ctrl.Restoring(1), 1)
	assert.Equal(t, int64(2), f.ctrl.Restoring(1)[0].ID)

	close(f.remote.gate)
	wg.Wait()
	f.wait(t)

	deletes, restores := f.remote.calls()
	assert.Equal(t, []int64{2}, deletes)
	assert.Equal(t, []int64{2}, restores)
	assert.Empty(t, f.ctrl.Restoring(1))
}

func TestUndoAfterFailedDeleteStaysVisibleUntilOutboxCleared(t *testing.T) {
	f := newFixture(t)
	f.remote.deleteErr = errors.New("db down")
	f.remote.gate = make(chan struct{})
	f.remote.entered = make(chan struct{})
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.ctrl.Flush(context.Background()))
	}()
	<-f.remote.entered
	require.True(t, f.queue.ExecuteUndo(undoID))
	close(f.remote.gate)
	wg.Wait()
	f.wait(t)

	hidden, err := f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, hidden)
	queued, _ := f.outbox.List(context.Background())
	assert.Empty(t, queued)
}

func TestUndoneLogHiddenWhileRemoteDeleteInFlight(t *testing.T) {
	f := newFixture(t)
	f.remote.gate = make(chan struct{})
	f.remote.entered = make(chan struct{})
	entry := domain.WeightEntry{ID: 4, Day: "2026-03-01", Value: 179}

	undoID := f.ctrl.Log(1, entry)
	require.True(t, f.queue.ExecuteUndo(undoID))
	select {
	case <-f.remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("remote delete never started")
	}

	hidden, err := f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, hidden, int64(4))

	close(f.remote.gate)
	f.wait(t)

	hidden, err = f.ctrl.Hidden(context.Background(), 1)
	require.NoError(t, err)
	assert.NotContains(t, hidden, int64(4))
}

func TestUndoAfterFailedDeleteClearsOutbox(t *testing.T) {
	f := newFixture(t)
	f.remote.deleteErr = errors.New("db down")
	undoID, err := f.ctrl.Delete(1, 2)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Flush(context.Background()))
	queued, _ := f.outbox.List(context.Background())
	require.Len(t, queued, 1)

	require.True(t, f.queue.ExecuteUndo(undoID))
	f.wait(t)

	queued, _ = f.outbox.List(context.Background())
	assert.Empty(t, queued)
	_, restores := f.remote.calls()
	assert.Empty(t, restores, "row was never deleted")
	assert.Equal(t, []int64{1, 2, 3}, f.ids())
}

func TestFlushRunsPendingDeletes(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctrl.Delete(1, 1)
	require.NoError(t, err)
	_, err = f.ctrl.Delete(1, 3)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Flush(context.Background()))
	deletes, _ := f.remote.calls()
	assert.ElementsMatch(t, []int64{1, 3}, deletes)
	assert.Empty(t, f.ctrl.Pending(1))

	f.clock.Advance(time.Minute)
	deletes, _ = f.remote.calls()
	assert.Len(t, deletes, 2, "timers must not fire again")
}

func TestLogWithUndo(t *testing.T) {
	f := newFixture(t)
	entry := domain.WeightEntry{ID: 4, Day: "2026-02-28", Value: 179}

	undoID := f.ctrl.Log(1, entry)
	assert.Equal(t, []int64{1, 2, 4, 3}, f.ids(), "logged entry is visible while undo is pending")

	require.True(t, f.queue.ExecuteUndo(undoID))
	assert.Equal(t, []int64{1, 2, 3}, f.ids())
	f.wait(t)

	deletes, _ := f.remote.calls()
	assert.Equal(t, []int64{4}, deletes)
}

func TestLogWithoutUndoKeepsEntry(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Log(1, domain.WeightEntry{ID: 4, Day: "2026-03-02", Value: 179})
	f.clock.Advance(10 * time.Second)

	assert.Equal(t, []int64{1, 2, 3, 4}, f.ids())
	deletes, _ := f.remote.calls()
	assert.Empty(t, deletes)
}
