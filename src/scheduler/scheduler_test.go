package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualClock(t *testing.T) {
	c := NewManualClock(epoch)
	c.Advance(16 * time.Millisecond)
	assert.Equal(t, epoch.Add(16*time.Millisecond), c.Now())
	c.Set(epoch)
	assert.Equal(t, epoch, c.Now())
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 16.0, Millis(16*time.Millisecond))
	assert.Equal(t, 0.5, Millis(500*time.Microsecond))
}

func TestRunDue(t *testing.T) {
	t.Run("synthetic time drives tasks", func(t *testing.T) {
		c := NewManualClock(epoch)
		s := New(c, 4)

		var frames, breaths []float64
		s.Every("frame", 16*time.Millisecond, func(now time.Time) {
			frames = append(frames, Millis(now.Sub(epoch)))
		})
		s.Every("breath", 3*time.Second, func(now time.Time) {
			breaths = append(breaths, Millis(now.Sub(epoch)))
		})

		// Both due at start
		assert.Equal(t, 2, s.RunDue())
		assert.Equal(t, 0, s.RunDue())

		for range 200 {
			c.Advance(16 * time.Millisecond)
			s.RunDue()
		}
		assert.Len(t, frames, 201)
		assert.Equal(t, 3200.0, frames[200])
		assert.Equal(t, []float64{0, 3008}, breaths)
		assert.Equal(t, 3200*time.Millisecond, s.Elapsed())
	})

	t.Run("missed deadlines are skipped", func(t *testing.T) {
		c := NewManualClock(epoch)
		s := New(c, 4)
		runs := 0
		s.Every("frame", 10*time.Millisecond, func(time.Time) { runs++ })

		s.RunDue()
		c.Advance(55 * time.Millisecond)
		assert.Equal(t, 1, s.RunDue())
		assert.Equal(t, 2, runs)

		// Next deadline realigns to the original grid
		c.Advance(4 * time.Millisecond)
		assert.Equal(t, 0, s.RunDue())
		c.Advance(1 * time.Millisecond)
		assert.Equal(t, 1, s.RunDue())

		stats := s.Stats()
		require.Len(t, stats, 1)
		assert.Equal(t, "frame", stats[0].Name)
		assert.Equal(t, uint64(3), stats[0].Runs)
		assert.Equal(t, uint64(4), stats[0].Skipped)
	})
}

func TestPostAndDrain(t *testing.T) {
	s := New(NewManualClock(epoch), 2)
	var order []int
	require.NoError(t, s.Post(func() { order = append(order, 1) }))
	require.NoError(t, s.Post(func() { order = append(order, 2) }))
	assert.ErrorIs(t, s.Post(func() {}), ErrInboxFull)

	assert.Equal(t, 2, s.Drain())
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 0, s.Drain())
}

func TestRun(t *testing.T) {
	s := New(SystemClock{}, 8)
	var ticks atomic.Int32
	s.Every("tick", time.Millisecond, func(time.Time) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var ran bool
	require.NoError(t, s.Call(ctx, func() { ran = true }))
	assert.True(t, ran)

	assert.Eventually(t, func() bool { return ticks.Load() >= 5 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestCallCancelled(t *testing.T) {
	s := New(NewManualClock(epoch), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Call(ctx, func() {}), context.Canceled)
}
