package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBroadcastWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int)
	fast := make(chan int, 8)
	slow := make(chan int, 1)
	stuck := make(chan int) // never read

	go broadcastWorker[int](ctx, "numbers", in, map[string]chan<- int{
		"fast":  fast,
		"slow":  slow,
		"stuck": stuck,
	}, zerolog.Nop())

	in <- 1
	in <- 2
	in <- 3
	// Receiving 4 means 3 has been fanned out
	in <- 4

	assert.Equal(t, 1, <-slow, "a full consumer keeps its oldest value")
	for want := 1; want <= 3; want++ {
		assert.Equal(t, want, <-fast)
	}
}
