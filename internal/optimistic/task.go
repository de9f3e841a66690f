// Package optimistic applies deletes and logs to the in-memory entry store
// immediately and finalizes the remote effect after the undo window.
package optimistic

import (
	"sync"
	"time"

	"fitflow/internal/clock"
)

type taskState int

const (
	taskScheduled taskState = iota
	taskCancelled
	taskFired
)

// Task is a delayed call with a cancel token. Once the call has started it
// can no longer be cancelled; Done is closed when it returns or when the task
// is cancelled.
type Task struct {
	mu    sync.Mutex
	state taskState
	timer clock.Timer
	fn    func() error
	err   error
	done  chan struct{}
}

// Schedule runs fn after d on c.
func Schedule(c clock.Clock, d time.Duration, fn func() error) *Task {
	t := &Task{fn: fn, done: make(chan struct{})}
	t.mu.Lock()
	t.timer = c.AfterFunc(d, t.run)
	t.mu.Unlock()
	return t
}

// Cancel stops the task if it has not started. It reports whether the call
// was prevented.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskScheduled {
		return false
	}
	t.state = taskCancelled
	if t.timer != nil {
		t.timer.Stop()
	}
	close(t.done)
	return true
}

// Fire starts the call now instead of waiting for the timer. It reports
// false if the task was cancelled or already started.
func (t *Task) Fire() bool {
	t.mu.Lock()
	if t.state != taskScheduled {
		t.mu.Unlock()
		return false
	}
	t.state = taskFired
	t.timer.Stop()
	t.mu.Unlock()
	t.finish(t.fn())
	return true
}

// Fired reports whether the call has started.
func (t *Task) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskFired
}

// Done is closed once the task is cancelled or its call has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err is the call's result. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) run() {
	t.mu.Lock()
	if t.state != taskScheduled {
		t.mu.Unlock()
		return
	}
	t.state = taskFired
	t.mu.Unlock()
	t.finish(t.fn())
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
