package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChimeNotes(t *testing.T) {
	for kind := range utteranceText {
		t.Run(string(kind), func(t *testing.T) {
			assert.NotEmpty(t, chimeNotes(kind))
		})
	}
	assert.Empty(t, chimeNotes("unknown"))
	assert.NotEqual(t, chimeNotes(UtterAckLeft), chimeNotes(UtterAckRight))
}

func TestChimeStreamer(t *testing.T) {
	notes := chimeNotes(UtterPresence)
	s, err := chimeStreamer(chimeSampleRate, notes, -1)
	require.NoError(t, err)

	want := 0
	var total time.Duration
	for _, n := range notes {
		want += chimeSampleRate.N(n.Duration)
		total += n.Duration
	}

	got := 0
	peak := 0.0
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		got += n
		for _, sample := range buf[:n] {
			peak = max(peak, sample[0], -sample[0])
		}
		if !ok {
			break
		}
		require.LessOrEqual(t, got, want, "stream ran past %s", total)
	}

	assert.Equal(t, want, got)
	assert.Greater(t, peak, 0.1)
	assert.LessOrEqual(t, peak, 0.5, "volume -1 halves the amplitude")
}
