package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "wistful", Wistful.String())
	assert.Equal(t, "radiant", Radiant.String())
	assert.Equal(t, "mood(9)", Mood(9).String())
	assert.Len(t, All(), 4)
}

func TestThreshold(t *testing.T) {
	assert.InDelta(t, 0.30, threshold(0.30, 0.80, 1, 3), 1e-12)
	assert.InDelta(t, 0.55, threshold(0.30, 0.80, 2, 3), 1e-12)
	assert.InDelta(t, 0.80, threshold(0.30, 0.80, 3, 3), 1e-12)
	assert.Equal(t, 0.4, threshold(0.4, 0.9, 1, 1))
}

func TestNewClassifier(t *testing.T) {
	assert.Equal(t, Wistful, NewClassifier(DefaultThresholds, 0.1).Current)
	assert.Equal(t, Serene, NewClassifier(DefaultThresholds, 0.5).Current)
	assert.Equal(t, Glowing, NewClassifier(DefaultThresholds, 0.6).Current)
	assert.Equal(t, Radiant, NewClassifier(DefaultThresholds, 0.95).Current)
}

func TestClassifier(t *testing.T) {
	t.Run("rising warmth steps up", func(t *testing.T) {
		c := NewClassifier(DefaultThresholds, 0)

		m, changed := c.Update(0.29)
		assert.Equal(t, Wistful, m)
		assert.False(t, changed)

		m, changed = c.Update(0.31)
		assert.Equal(t, Serene, m)
		assert.True(t, changed)

		m, _ = c.Update(0.56)
		assert.Equal(t, Glowing, m)

		m, _ = c.Update(0.85)
		assert.Equal(t, Radiant, m)
	})

	t.Run("falling warmth steps down", func(t *testing.T) {
		c := NewClassifier(DefaultThresholds, 1)

		m, _ := c.Update(0.76)
		assert.Equal(t, Radiant, m)

		m, _ = c.Update(0.74)
		assert.Equal(t, Glowing, m)

		m, _ = c.Update(0.49)
		assert.Equal(t, Serene, m)

		// Skips straight down
		m, changed := c.Update(0.1)
		assert.Equal(t, Wistful, m)
		assert.True(t, changed)
	})

	t.Run("hysteresis prevents flicker", func(t *testing.T) {
		c := NewClassifier(DefaultThresholds, 0)
		c.Update(0.56)
		assert.Equal(t, Glowing, c.Current)

		// Between fall 0.50 and rise 0.55 nothing changes
		for _, w := range []float64{0.54, 0.51, 0.53, 0.50} {
			m, changed := c.Update(w)
			assert.Equal(t, Glowing, m, "warmth %v", w)
			assert.False(t, changed)
		}

		c.Update(0.49)
		assert.Equal(t, Serene, c.Current)
		for _, w := range []float64{0.51, 0.54} {
			m, _ := c.Update(w)
			assert.Equal(t, Serene, m, "warmth %v", w)
		}
	})
}
