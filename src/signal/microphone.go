package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// ErrSignalUnavailable means no microphone could be opened.
var ErrSignalUnavailable = errors.New("signal unavailable")

const DefaultSampleRate = 44100

// MicrophoneConfig selects capture parameters.
type MicrophoneConfig struct {
	SampleRate float64
	FFTSize    int
}

// Microphone captures the default input device and feeds a mailbox from
// the audio callback.
type Microphone struct {
	stream   *portaudio.Stream
	analyzer *Analyzer
	out      *Mailbox
	log      zerolog.Logger

	closeOnce sync.Once
}

// Acquire opens and starts the default input stream. On any failure it
// returns an error wrapping ErrSignalUnavailable and leaves nothing running.
func Acquire(ctx context.Context, cfg MicrophoneConfig, out *Mailbox, log zerolog.Logger) (*Microphone, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = DefaultFFTSize
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrSignalUnavailable, err)
	}

	m := &Microphone{
		analyzer: NewAnalyzer(cfg.FFTSize),
		out:      out,
		log:      log.With().Str("component", "microphone").Logger(),
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, cfg.SampleRate, cfg.FFTSize, m.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrSignalUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrSignalUnavailable, err)
	}
	m.stream = stream

	m.log.Info().Float64("sample_rate", cfg.SampleRate).Int("fft_size", cfg.FFTSize).Msg("microphone capturing")
	return m, nil
}

// process runs on the audio callback thread.
func (m *Microphone) process(in []float32) {
	m.analyzer.Write(in)
	m.out.Put(m.analyzer.Sample())
}

// Close stops capture.
func (m *Microphone) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		portaudio.Terminate()
		m.log.Info().Msg("microphone closed")
	})
	return err
}
