package undo_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitflow/internal/clock"
	"fitflow/internal/undo"
)

func newQueue() (*undo.Queue, *clock.Fake) {
	c := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return undo.NewQueue(c, 0), c
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	q, _ := newQueue()
	a := q.Add(undo.Item{UserID: 1, Message: "a"})
	b := q.Add(undo.Item{UserID: 1, Message: "b"})
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, undo.DefaultDuration, q.DefaultWindow())
}

func TestExecuteUndoRunsOnce(t *testing.T) {
	q, c := newQueue()
	calls := 0
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() { calls++ }})

	require.True(t, q.ExecuteUndo(id))
	assert.False(t, q.ExecuteUndo(id), "second undo is a no-op")
	assert.Equal(t, 1, calls)
	assert.Zero(t, q.Len())

	c.Advance(10 * time.Second)
	assert.Equal(t, 1, calls, "timer must not call OnUndo")
	assert.Zero(t, c.Pending())
}

func TestExpiryRemovesWithoutUndo(t *testing.T) {
	q, c := newQueue()
	called := false
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() { called = true }})

	c.Advance(4999 * time.Millisecond)
	assert.Equal(t, 1, q.Len())

	c.Advance(time.Millisecond)
	assert.Zero(t, q.Len())
	assert.False(t, q.ExecuteUndo(id), "undo after expiry is a no-op")
	assert.False(t, called)
}

func TestDismissSkipsUndo(t *testing.T) {
	q, _ := newQueue()
	called := false
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() { called = true }})

	require.True(t, q.Dismiss(id))
	assert.False(t, q.Dismiss(id))
	assert.False(t, q.ExecuteUndo(id))
	assert.False(t, called)
}

func TestUnknownIDIsNoop(t *testing.T) {
	q, _ := newQueue()
	assert.NotPanics(t, func() {
		assert.False(t, q.ExecuteUndo("missing"))
		assert.False(t, q.Dismiss("missing"))
	})
}

func TestScopedToOwner(t *testing.T) {
	q, _ := newQueue()
	called := false
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() { called = true }})

	assert.False(t, q.ExecuteUndoFor(2, id))
	assert.False(t, q.DismissFor(2, id))
	assert.Equal(t, 1, q.Len())

	assert.True(t, q.ExecuteUndoFor(1, id))
	assert.True(t, called)
}

func TestListRemainingFromCreatedAt(t *testing.T) {
	q, c := newQueue()
	q.Add(undo.Item{UserID: 1, Message: "first", Duration: 5 * time.Second})
	c.Advance(2 * time.Second)
	q.Add(undo.Item{UserID: 1, Message: "second", Duration: 3 * time.Second})
	q.Add(undo.Item{UserID: 2, Message: "other user"})
	c.Advance(500 * time.Millisecond)

	views := q.List(1)
	require.Len(t, views, 2)
	assert.Equal(t, "first", views[0].Message)
	assert.Equal(t, int64(2500), views[0].RemainingMs)
	assert.Equal(t, "second", views[1].Message)
	assert.Equal(t, int64(2500), views[1].RemainingMs)
	assert.Equal(t, int64(3000), views[1].DurationMs)

	assert.Empty(t, q.List(3))
}

func TestItemsAreIndependent(t *testing.T) {
	q, c := newQueue()
	var undone []string
	a := q.Add(undo.Item{UserID: 1, OnUndo: func() { undone = append(undone, "a") }})
	q.Add(undo.Item{UserID: 1, Duration: 2 * time.Second, OnUndo: func() { undone = append(undone, "b") }})

	c.Advance(2 * time.Second)
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.ExecuteUndo(a))
	assert.Equal(t, []string{"a"}, undone)
}

func TestOnUndoMayUseQueue(t *testing.T) {
	q, _ := newQueue()
	var inner string
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() {
		inner = q.Add(undo.Item{UserID: 1, Message: "restored"})
	}})
	require.True(t, q.ExecuteUndo(id))
	assert.Len(t, q.List(1), 1)
	assert.Equal(t, inner, q.List(1)[0].ID)
}

func TestConcurrentUndoWinsOnce(t *testing.T) {
	q := undo.NewQueue(clock.New(), time.Minute)
	var calls atomic.Int32
	id := q.Add(undo.Item{UserID: 1, OnUndo: func() { calls.Add(1) }})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.ExecuteUndo(id)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}
