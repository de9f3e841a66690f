package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitflow/internal/clock"
)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	var got []string
	c.AfterFunc(3*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(10*time.Second, func() { got = append(got, "c") })

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, start.Add(5*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := clock.NewFake(time.Now())
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, tm.Stop())
	require.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeStopAfterFire(t *testing.T) {
	c := clock.NewFake(time.Now())
	tm := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, tm.Stop())
}

func TestFakeNowInsideCallback(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)
	var at time.Time
	c.AfterFunc(2*time.Second, func() { at = c.Now() })
	c.Advance(time.Minute)
	assert.Equal(t, start.Add(2*time.Second), at)
}

func TestFakeNestedSchedule(t *testing.T) {
	c := clock.NewFake(time.Now())
	n := 0
	c.AfterFunc(time.Second, func() {
		n++
		c.AfterFunc(time.Second, func() { n++ })
	})
	c.Advance(3 * time.Second)
	assert.Equal(t, 2, n)
}
