package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/visimos/src/affect"
)

func TestUtteranceText(t *testing.T) {
	tests := []struct {
		kind UtteranceKind
		want string
	}{
		{UtterGreet, "Welcome back."},
		{UtterNoticed, "I see you."},
		{UtterPresence, "I am here."},
		{UtterAckRight, "Okay."},
		{UtterAckLeft, "Understood."},
		{UtterCleared, "Memory cleared."},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, newUtterance(tt.kind, orbEpoch).Text)
		})
	}

	assert.Equal(t, UtterAckRight, ackKind(affect.Right))
	assert.Equal(t, UtterAckLeft, ackKind(affect.Left))
}

func TestSpeechInterceptorCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var now atomic.Int64
	now.Store(orbEpoch.UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	in := make(chan Utterance)
	out := make(chan Utterance, 4)
	go speechInterceptorWorker(ctx, 2*time.Second, clock, in, out, zerolog.Nop())

	receive := func() Utterance {
		t.Helper()
		select {
		case u := <-out:
			return u
		case <-time.After(2 * time.Second):
			require.FailNow(t, "no utterance forwarded")
			return Utterance{}
		}
	}

	in <- newUtterance(UtterNoticed, orbEpoch)
	assert.Equal(t, UtterNoticed, receive().Kind)

	// Inside the cooldown
	now.Add(int64(1500 * time.Millisecond))
	in <- newUtterance(UtterPresence, orbEpoch)

	// Cooldown measured from the last voiced utterance
	now.Add(int64(600 * time.Millisecond))
	in <- newUtterance(UtterAckRight, orbEpoch)
	assert.Equal(t, UtterAckRight, receive().Kind)

	assert.Empty(t, out)
}
