package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
)

var (
	reconcileAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitflow_reconcile_attempts_total",
		Help: "Retries of failed deferred deletes by kind and result",
	}, []string{"kind", "result"})

	outboxSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fitflow_outbox_pending",
		Help: "Failed deferred deletes waiting in the outbox",
	})
)

// RemoveFunc soft-deletes one entry.
type RemoveFunc func(ctx context.Context, userID, id int64) error

// ReconcileResult summarises one pass over the outbox.
type ReconcileResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// Reconciler retries deferred deletes that failed after their undo window,
// so the database converges on what the user already sees.
type Reconciler struct {
	outbox   domain.DeleteOutbox
	removers map[domain.Kind]RemoveFunc
	limiter  *rate.Limiter
	clock    clock.Clock
	timeout  time.Duration
	log      *slog.Logger
}

// NewReconciler creates a Reconciler that issues at most perSecond retries
// per second.
func NewReconciler(outbox domain.DeleteOutbox, removers map[domain.Kind]RemoveFunc, perSecond float64, c clock.Clock, timeout time.Duration, logger *slog.Logger) *Reconciler {
	if perSecond <= 0 {
		perSecond = 5
	}
	if c == nil {
		c = clock.New()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		outbox:   outbox,
		removers: removers,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		clock:    c,
		timeout:  timeout,
		log:      logger,
	}
}

// RunOnce retries every queued delete once.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	items, err := r.outbox.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list outbox: %w", err)
	}
	for _, p := range items {
		remove, ok := r.removers[p.Kind]
		if !ok {
			res.Skipped++
			r.log.Warn("outbox item with unknown kind", "kind", p.Kind, "entry_id", p.EntryID)
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return res, err
		}
		res.Attempted++
		if err := r.retry(ctx, remove, p); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}
	if remaining, err := r.outbox.List(ctx); err == nil {
		outboxSize.Set(float64(len(remaining)))
	}
	return res, nil
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		res, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error("reconcile pass failed", "err", err)
		} else if res.Attempted > 0 {
			r.log.Info("reconcile pass", "attempted", res.Attempted, "succeeded", res.Succeeded, "failed", res.Failed)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Reconciler) retry(ctx context.Context, remove RemoveFunc, p domain.PendingDelete) error {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	err := remove(callCtx, p.UserID, p.EntryID)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		// Not found means the row is already deleted or purged.
		reconcileAttempts.WithLabelValues(string(p.Kind), "ok").Inc()
		if rerr := r.outbox.Remove(ctx, p.Kind, p.UserID, p.EntryID); rerr != nil {
			r.log.Error("outbox remove failed", "key", p.Key(), "err", rerr)
		}
		return nil
	}
	reconcileAttempts.WithLabelValues(string(p.Kind), "failed").Inc()
	p.Attempts++
	p.LastError = err.Error()
	p.FailedAt = r.clock.Now()
	if perr := r.outbox.Put(ctx, p); perr != nil {
		r.log.Error("outbox update failed", "key", p.Key(), "err", perr)
	}
	r.log.Warn("retry of deferred delete failed", "key", p.Key(), "attempts", p.Attempts, "err", err)
	return err
}
