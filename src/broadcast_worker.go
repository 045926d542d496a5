package main

import (
	"context"

	"github.com/rs/zerolog"
)

// broadcastWorker fans every value from inputChan out to all outputs.
// Sends never block: a consumer that has fallen behind misses the value.
func broadcastWorker[T any](
	ctx context.Context,
	name string,
	inputChan <-chan T,
	outputs map[string]chan<- T,
	logger zerolog.Logger,
) {
	for {
		select {
		case v := <-inputChan:
			for consumer, ch := range outputs {
				select {
				case ch <- v:
				case <-ctx.Done():
					return
				default:
					if name == "frames" {
						framesDropped.WithLabelValues(consumer).Inc()
					}
					logger.Trace().Str("stream", name).Str("consumer", consumer).Msg("consumer busy, dropping")
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
