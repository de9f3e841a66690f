package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"fitflow/internal/adapter/memory"
	"fitflow/internal/app"
	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/undo"
)

const uid = int64(1)

var errDown = errors.New("database unavailable")

// Wednesday morning, local time.
func testNow() time.Time { return time.Date(2026, 3, 11, 9, 0, 0, 0, time.Local) }

// flakyDB fails soft deletes while failDeletes is set and holds them while
// gate is set.
type flakyDB struct {
	*memory.DB
	mu          sync.Mutex
	failDeletes bool
	gate        chan struct{}
	entered     chan struct{}
}

// holdDeletes makes weight deletes block until release is called. The
// returned channel receives once per delete that reached the database.
func (f *flakyDB) holdDeletes() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 8)
	gate := f.gate
	return f.entered, func() { close(gate) }
}

func (f *flakyDB) hold() {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
}

func (f *flakyDB) setFail(v bool) {
	f.mu.Lock()
	f.failDeletes = v
	f.mu.Unlock()
}

func (f *flakyDB) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failDeletes
}

func (f *flakyDB) DeleteWeightEntry(ctx context.Context, userID, id int64) error {
	f.hold()
	if f.failing() {
		return errDown
	}
	return f.DB.DeleteWeightEntry(ctx, userID, id)
}

type fixture struct {
	clock    *clock.Fake
	db       *flakyDB
	queue    *undo.Queue
	notices  *undo.Notices
	outbox   *memory.Outbox
	deps     app.Deps
	weights  *app.WeightService
	calories *app.CalorieService
	wellness *app.WellnessService
	moods    *app.MoodService
	profiles *app.ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(testNow())
	db := &flakyDB{DB: memory.New()}
	f := &fixture{
		clock:   clk,
		db:      db,
		queue:   undo.NewQueue(clk, 5*time.Second),
		notices: undo.NewNotices(clk),
		outbox:  memory.NewOutbox(),
	}
	f.deps = app.Deps{
		Queue:         f.queue,
		Notices:       f.notices,
		Outbox:        f.outbox,
		Clock:         clk,
		RemoteTimeout: time.Second,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.weights = app.NewWeightService(db, f.deps)
	f.calories = app.NewCalorieService(db, f.deps)
	f.wellness = app.NewWellnessService(db, f.deps)
	f.moods = app.NewMoodService(db, f.deps)
	f.profiles = app.NewProfileService(db, db, clk)
	return f
}

// seed stores rows directly so they carry no undo items.
func (f *fixture) seedWeight(t *testing.T, day string, lb float64) domain.WeightEntry {
	t.Helper()
	e, err := f.db.AddWeightEntry(context.Background(), uid, domain.WeightInput{Value: lb, Unit: "lb", Day: day}, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	return *e
}

func (f *fixture) seedCalories(t *testing.T, day string, kcal int) {
	t.Helper()
	if _, err := f.db.AddCalorieEntry(context.Background(), uid, domain.CalorieInput{Calories: kcal, MealType: domain.MealLunch, Day: day}, f.clock.Now()); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) seedWellness(t *testing.T, day string, sleep float64, water int) {
	t.Helper()
	if _, err := f.db.AddWellnessEntry(context.Background(), uid, domain.WellnessInput{SleepHours: sleep, WaterGlasses: water, Day: day}, f.clock.Now()); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) seedMood(t *testing.T, day string) {
	t.Helper()
	if _, err := f.db.AddMoodEntry(context.Background(), uid, domain.MoodInput{Mood: "good", EnergyLevel: 7, Day: day}, f.clock.Now()); err != nil {
		t.Fatal(err)
	}
}

// dayOffset returns the entry date n days before testNow.
func dayOffset(n int) string {
	return domain.DayString(testNow().AddDate(0, 0, -n))
}

func waitEntered(t *testing.T, entered <-chan struct{}) {
	t.Helper()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("delete never reached the database")
	}
}

func ids[E domain.Entry](list []E) []int64 {
	out := make([]int64, len(list))
	for i, e := range list {
		out[i] = e.EntryID()
	}
	return out
}
