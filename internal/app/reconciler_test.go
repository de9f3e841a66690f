package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitflow/internal/app"
	"fitflow/internal/domain"
)

func TestReconcilerRunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedWeight(t, dayOffset(1), 182)
	f.db.setFail(true)

	_, err := f.weights.Delete(ctx, uid, a.ID)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	rec := app.NewReconciler(f.outbox, map[domain.Kind]app.RemoveFunc{
		domain.KindWeight: f.weights.RemoveFunc(),
	}, 1000, f.clock, time.Second, f.deps.Logger)

	// Still failing: attempts go up and the item stays queued.
	res, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.ReconcileResult{Attempted: 1, Failed: 1}, res)
	queued, _ := f.outbox.List(ctx)
	require.Len(t, queued, 1)
	assert.Equal(t, 2, queued[0].Attempts)
	assert.Equal(t, errDown.Error(), queued[0].LastError)

	f.db.setFail(false)
	res, err = rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.ReconcileResult{Attempted: 1, Succeeded: 1}, res)
	queued, _ = f.outbox.List(ctx)
	assert.Empty(t, queued)
	rows, _ := f.db.ListWeightEntries(ctx, uid)
	assert.Empty(t, rows)
}

func TestReconcilerRunOnce_NotFoundCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.outbox.Put(ctx, domain.PendingDelete{Kind: domain.KindMood, UserID: uid, EntryID: 99}))
	require.NoError(t, f.outbox.Put(ctx, domain.PendingDelete{Kind: domain.Kind("steps"), UserID: uid, EntryID: 1}))

	rec := app.NewReconciler(f.outbox, map[domain.Kind]app.RemoveFunc{
		domain.KindMood: f.moods.RemoveFunc(),
	}, 1000, f.clock, time.Second, f.deps.Logger)

	res, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.ReconcileResult{Attempted: 1, Succeeded: 1, Skipped: 1}, res)
	queued, _ := f.outbox.List(ctx)
	require.Len(t, queued, 1, "unknown kinds stay for a later release")
}

func TestReconcilerRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	rec := app.NewReconciler(f.outbox, nil, 0, f.clock, 0, f.deps.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rec.Run(ctx, time.Hour), context.Canceled)
}
