// Package autocommit implements a numeric input that commits itself a fixed
// time after its last change unless the countdown is cancelled.
package autocommit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fitflow/internal/clock"
)

// DefaultDelay is the countdown used by quick-log inputs.
const DefaultDelay = 3 * time.Second

// ErrEmpty is returned by Commit when there is no value worth persisting.
var ErrEmpty = errors.New("nothing to commit")

var commits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fitflow_autocommit_total",
	Help: "Auto-commit input outcomes (committed, failed, cancelled, skipped)",
}, []string{"input", "result"})

// State is the lifecycle of an Input.
type State int

const (
	Clean State = iota
	Dirty
	CountingDown
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case CountingDown:
		return "counting-down"
	}
	return "unknown"
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CommitFunc persists a value. It is the same path a manual submit uses.
type CommitFunc func(ctx context.Context, value float64) error

// Options configure an Input.
type Options struct {
	Name    string
	Delay   time.Duration
	Enabled bool
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Snapshot is the observable state of an Input.
type Snapshot struct {
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	State       State     `json:"state"`
	AutoCommit  bool      `json:"autoCommit"`
	RemainingMs int64     `json:"remainingMs"`
	Committed   *float64  `json:"committed,omitempty"`
	CommittedAt time.Time `json:"committedAt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

// Input holds one value and drives it through clean, dirty, counting-down
// and back to clean once committed.
type Input struct {
	opts   Options
	commit CommitFunc

	mu          sync.Mutex
	value       float64
	state       State
	gen         uint64
	timer       clock.Timer
	deadline    time.Time
	committed   *float64
	committedAt time.Time
	lastErr     error
}

// New returns a clean input that commits through fn.
func New(fn CommitFunc, opts Options) *Input {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Input{opts: opts, commit: fn}
}

// OnChange updates the displayed value and marks the input dirty. With
// auto-commit enabled and a non-empty value the countdown (re)starts.
func (in *Input) OnChange(value float64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.value = value
	in.gen++
	in.stopTimer()
	in.state = Dirty
	if in.opts.Enabled && value != 0 {
		in.startTimer()
	}
}

// Cancel stops a running countdown and leaves the input dirty. It reports
// whether a countdown was running.
func (in *Input) Cancel() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.state != CountingDown {
		return false
	}
	in.stopTimer()
	in.state = Dirty
	commits.WithLabelValues(in.opts.Name, "cancelled").Inc()
	return true
}

// SetEnabled turns auto-commit on or off. Disabling cancels a running
// countdown; enabling starts one for a dirty input.
func (in *Input) SetEnabled(enabled bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.opts.Enabled = enabled
	switch {
	case !enabled && in.state == CountingDown:
		in.stopTimer()
		in.state = Dirty
	case enabled && in.state == Dirty && in.value != 0:
		in.startTimer()
	}
}

// Commit persists the current value now. Empty values are not committed and
// yield ErrEmpty. On failure the input stays dirty so it can be retried.
func (in *Input) Commit(ctx context.Context) error {
	in.mu.Lock()
	in.stopTimer()
	value, gen := in.value, in.gen
	if value == 0 {
		if in.state == CountingDown {
			in.state = Dirty
		}
		in.mu.Unlock()
		commits.WithLabelValues(in.opts.Name, "skipped").Inc()
		return ErrEmpty
	}
	if in.state == CountingDown {
		in.state = Dirty
	}
	in.mu.Unlock()

	err := in.commit(ctx, value)

	in.mu.Lock()
	defer in.mu.Unlock()
	if err != nil {
		in.lastErr = err
		if in.gen == gen {
			in.state = Dirty
		}
		commits.WithLabelValues(in.opts.Name, "failed").Inc()
		return err
	}
	in.lastErr = nil
	in.committed = &value
	in.committedAt = in.opts.Clock.Now()
	if in.gen == gen {
		// A change made while the commit was in flight keeps the input dirty.
		in.state = Clean
	}
	commits.WithLabelValues(in.opts.Name, "committed").Inc()
	return nil
}

// Snapshot returns the current state.
func (in *Input) Snapshot() Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := Snapshot{
		Name:        in.opts.Name,
		Value:       in.value,
		State:       in.state,
		AutoCommit:  in.opts.Enabled,
		CommittedAt: in.committedAt,
	}
	if in.state == CountingDown {
		if left := in.deadline.Sub(in.opts.Clock.Now()); left > 0 {
			s.RemainingMs = left.Milliseconds()
		}
	}
	if in.committed != nil {
		v := *in.committed
		s.Committed = &v
	}
	if in.lastErr != nil {
		s.LastError = in.lastErr.Error()
	}
	return s
}

// State returns the lifecycle state.
func (in *Input) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// startTimer must be called with mu held.
func (in *Input) startTimer() {
	gen := in.gen
	in.state = CountingDown
	in.deadline = in.opts.Clock.Now().Add(in.opts.Delay)
	in.timer = in.opts.Clock.AfterFunc(in.opts.Delay, func() { in.fire(gen) })
}

// stopTimer must be called with mu held.
func (in *Input) stopTimer() {
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
}

func (in *Input) fire(gen uint64) {
	in.mu.Lock()
	if in.state != CountingDown || in.gen != gen {
		in.mu.Unlock()
		return
	}
	in.timer = nil
	in.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), in.opts.Timeout)
	defer cancel()
	if err := in.Commit(ctx); err != nil {
		in.opts.Logger.Warn("auto-commit failed", "input", in.opts.Name, "err", err)
	}
}
