package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fitflow/internal/autocommit"
	"fitflow/internal/clock"
	"fitflow/internal/domain"
)

// Quick-log metrics.
const (
	QuickWeight   = "weight"
	QuickCalories = "calories"
	QuickWater    = "water"
	QuickSleep    = "sleep"
)

// QuickMetrics lists the quick-log inputs in display order.
var QuickMetrics = []string{QuickWeight, QuickCalories, QuickWater, QuickSleep}

// ErrUnknownMetric is returned for a quick-log metric that does not exist.
var ErrUnknownMetric = fmt.Errorf("%w: unknown quick-log metric", domain.ErrValidation)

// QuickLogOptions configure the quick-log inputs.
type QuickLogOptions struct {
	Delay         time.Duration
	Enabled       bool
	RemoteTimeout time.Duration
	Clock         clock.Clock
	Logger        *slog.Logger
}

// QuickLogService keeps one auto-commit input per user and metric and routes
// commits to the metric services.
type QuickLogService struct {
	weights  *WeightService
	calories *CalorieService
	wellness *WellnessService
	profiles profileGetter
	opts     QuickLogOptions

	mu     sync.Mutex
	inputs map[int64]map[string]*autocommit.Input
}

// NewQuickLogService creates a QuickLogService.
func NewQuickLogService(w *WeightService, c *CalorieService, wl *WellnessService, p profileGetter, opts QuickLogOptions) *QuickLogService {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &QuickLogService{
		weights:  w,
		calories: c,
		wellness: wl,
		profiles: p,
		opts:     opts,
		inputs:   make(map[int64]map[string]*autocommit.Input),
	}
}

// State returns every quick-log input of the user.
func (s *QuickLogService) State(ctx context.Context, userID int64) []autocommit.Snapshot {
	inputs := s.forUser(ctx, userID)
	out := make([]autocommit.Snapshot, 0, len(QuickMetrics))
	for _, m := range QuickMetrics {
		out = append(out, inputs[m].Snapshot())
	}
	return out
}

// Change sets the value of an input and (re)starts its countdown.
func (s *QuickLogService) Change(ctx context.Context, userID int64, metric string, value float64) (autocommit.Snapshot, error) {
	in, err := s.input(ctx, userID, metric)
	if err != nil {
		return autocommit.Snapshot{}, err
	}
	in.OnChange(value)
	return in.Snapshot(), nil
}

// Cancel stops the countdown of an input, leaving it dirty.
func (s *QuickLogService) Cancel(ctx context.Context, userID int64, metric string) (autocommit.Snapshot, error) {
	in, err := s.input(ctx, userID, metric)
	if err != nil {
		return autocommit.Snapshot{}, err
	}
	in.Cancel()
	return in.Snapshot(), nil
}

// Commit persists an input now, as the manual Log button does.
func (s *QuickLogService) Commit(ctx context.Context, userID int64, metric string) (autocommit.Snapshot, error) {
	in, err := s.input(ctx, userID, metric)
	if err != nil {
		return autocommit.Snapshot{}, err
	}
	err = in.Commit(ctx)
	return in.Snapshot(), err
}

// SetAutoCommit toggles auto-commit for all of the user's inputs.
func (s *QuickLogService) SetAutoCommit(ctx context.Context, userID int64, enabled bool) {
	for _, in := range s.forUser(ctx, userID) {
		in.SetEnabled(enabled)
	}
}

// Forget drops the user's inputs, cancelling running countdowns.
func (s *QuickLogService) Forget(userID int64) {
	s.mu.Lock()
	inputs := s.inputs[userID]
	delete(s.inputs, userID)
	s.mu.Unlock()
	for _, in := range inputs {
		in.Cancel()
	}
}

func (s *QuickLogService) input(ctx context.Context, userID int64, metric string) (*autocommit.Input, error) {
	in, ok := s.forUser(ctx, userID)[metric]
	if !ok {
		return nil, ErrUnknownMetric
	}
	return in, nil
}

func (s *QuickLogService) forUser(ctx context.Context, userID int64) map[string]*autocommit.Input {
	s.mu.Lock()
	inputs, ok := s.inputs[userID]
	s.mu.Unlock()
	if ok {
		return inputs
	}

	enabled, unit := s.opts.Enabled, "lb"
	if s.profiles != nil {
		if p, err := s.profiles.Get(ctx, userID); err == nil {
			enabled = enabled && p.Preferences.AutoCommit
			if p.Preferences.WeightUnit != "" {
				unit = p.Preferences.WeightUnit
			}
		}
	}

	inputs = make(map[string]*autocommit.Input, len(QuickMetrics))
	mk := func(name string, fn autocommit.CommitFunc) {
		inputs[name] = autocommit.New(fn, autocommit.Options{
			Name:    name,
			Delay:   s.opts.Delay,
			Enabled: enabled,
			Timeout: s.opts.RemoteTimeout,
			Clock:   s.opts.Clock,
			Logger:  s.opts.Logger.With("user_id", userID),
		})
	}
	mk(QuickWeight, func(ctx context.Context, v float64) error {
		_, _, err := s.weights.Log(ctx, userID, domain.WeightInput{Value: v, Unit: unit})
		return err
	})
	mk(QuickCalories, func(ctx context.Context, v float64) error {
		_, _, err := s.calories.Log(ctx, userID, domain.CalorieInput{Calories: int(v)})
		return err
	})
	// Water and sleep share one wellness row; each commit carries the other
	// input's current value.
	mk(QuickWater, func(ctx context.Context, v float64) error {
		sleep := inputs[QuickSleep].Snapshot().Value
		_, _, err := s.wellness.Log(ctx, userID, domain.WellnessInput{SleepHours: sleep, WaterGlasses: int(v)})
		return err
	})
	mk(QuickSleep, func(ctx context.Context, v float64) error {
		water := inputs[QuickWater].Snapshot().Value
		_, _, err := s.wellness.Log(ctx, userID, domain.WellnessInput{SleepHours: v, WaterGlasses: int(water)})
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.inputs[userID]; ok {
		return existing
	}
	s.inputs[userID] = inputs
	return inputs
}
