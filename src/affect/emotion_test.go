package affect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoy(t *testing.T) {
	assert.Equal(t, 0.0, Joy(0))
	assert.Equal(t, 0.0, Joy(30))
	assert.InDelta(t, 0.5, Joy(90), 1e-9)
	assert.Equal(t, 1.0, Joy(150))
	assert.Equal(t, 1.0, Joy(255))
}

func TestEmotionUpdate(t *testing.T) {
	t.Run("constant energy converges geometrically", func(t *testing.T) {
		e := InitialEmotion()
		target := Joy(90)

		for n := 1; n <= 100; n++ {
			e.Update(Sample{Energy: 90})
			expected := target + (0.5-target)*math.Pow(WarmthRetention, float64(n))
			assert.InDelta(t, expected, e.Warmth, 1e-9, "step %d", n)
		}
		assert.InDelta(t, target, e.Warmth, 0.01)
	})

	t.Run("calm follows loudness directly", func(t *testing.T) {
		e := InitialEmotion()
		e.Update(Sample{Energy: 100})
		assert.InDelta(t, 0.5, e.Calm, 1e-9)
		e.Update(Sample{Energy: 0})
		assert.Equal(t, 1.0, e.Calm)
		e.Update(Sample{Energy: 255})
		assert.Equal(t, 0.0, e.Calm)
	})

	t.Run("silence drifts to lavender", func(t *testing.T) {
		e := InitialEmotion()
		for range 200 {
			e.Update(Sample{Energy: 0})
		}
		assert.Less(t, e.Warmth, 0.0001)
		c := ColorFor(e.Warmth)
		assert.InDelta(t, int(Lavender.R), int(c.R), 1)
		assert.InDelta(t, int(Lavender.G), int(c.G), 1)
		assert.InDelta(t, int(Lavender.B), int(c.B), 1)
	})

	t.Run("malformed samples are no signal", func(t *testing.T) {
		for _, s := range []Sample{
			{Energy: math.NaN()},
			{Energy: -1},
			{Energy: 256},
			{Energy: math.Inf(1)},
		} {
			e := EmotionState{Warmth: 0.3, Calm: 0.4}
			inflate, ok := e.Update(s)
			assert.False(t, ok)
			assert.Zero(t, inflate)
			assert.Equal(t, EmotionState{Warmth: 0.3, Calm: 0.4}, e)
		}
	})

	t.Run("loud samples inflate", func(t *testing.T) {
		e := InitialEmotion()

		_, ok := e.Update(Sample{Energy: 45})
		assert.False(t, ok)

		inflate, ok := e.Update(Sample{Energy: 110})
		assert.True(t, ok)
		assert.InDelta(t, 1.5, inflate, 1e-9)

		inflate, ok = e.Update(Sample{Energy: 255})
		assert.True(t, ok)
		assert.InDelta(t, 1.8, inflate, 1e-9)
	})
}

func TestNudge(t *testing.T) {
	e := EmotionState{Warmth: 0.5, Calm: 1}
	e.Nudge(1)
	assert.InDelta(t, 0.525, e.Warmth, 1e-9)
	assert.Equal(t, 1.0, e.Calm)
}
