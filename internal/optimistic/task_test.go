package optimistic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fitflow/internal/clock"
	"fitflow/internal/optimistic"
)

func TestTaskCancelBeforeFire(t *testing.T) {
	c := clock.NewFake(time.Now())
	ran := false
	task := optimistic.Schedule(c, time.Second, func() error { ran = true; return nil })

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel())
	c.Advance(time.Minute)
	assert.False(t, ran)
	assert.False(t, task.Fired())
	select {
	case <-task.Done():
	default:
		t.Fatal("Done must be closed after cancel")
	}
}

func TestTaskFires(t *testing.T) {
	c := clock.NewFake(time.Now())
	boom := errors.New("boom")
	task := optimistic.Schedule(c, time.Second, func() error { return boom })

	c.Advance(time.Second)
	assert.True(t, task.Fired())
	assert.False(t, task.Cancel(), "cannot cancel after firing")
	<-task.Done()
	assert.ErrorIs(t, task.Err(), boom)
}

func TestTaskFireEarly(t *testing.T) {
	c := clock.NewFake(time.Now())
	n := 0
	task := optimistic.Schedule(c, time.Hour, func() error { n++; return nil })

	assert.True(t, task.Fire())
	assert.False(t, task.Fire())
	c.Advance(2 * time.Hour)
	assert.Equal(t, 1, n)
}
