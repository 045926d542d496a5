package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/config"
	"github.com/ryansname/visimos/src/signal"
)

// signalWorker opens the microphone and holds it until shutdown. Without a
// microphone the orb keeps running on touch and remote samples alone.
func signalWorker(ctx context.Context, cfg config.SignalConfig, mailbox *signal.Mailbox, logger zerolog.Logger) {
	signalAvailable.Set(0)

	mic, err := signal.Acquire(ctx, signal.MicrophoneConfig{
		SampleRate: cfg.SampleRate,
		FFTSize:    cfg.FFTSize,
	}, mailbox, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("continuing without microphone")
		return
	}
	signalAvailable.Set(1)

	<-ctx.Done()

	signalAvailable.Set(0)
	if err := mic.Close(); err != nil {
		logger.Warn().Err(err).Msg("error closing microphone")
	}
}
