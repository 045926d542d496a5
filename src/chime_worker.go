package main

import (
	"context"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"
)

const chimeSampleRate = beep.SampleRate(44100)

// chimeNote is one tone in a chime. A zero frequency is a rest.
type chimeNote struct {
	Freq     float64
	Duration time.Duration
}

// chimeNotes gives each utterance its own short motif, so the orb's voice
// is audible without a speech synthesizer.
func chimeNotes(kind UtteranceKind) []chimeNote {
	switch kind {
	case UtterGreet:
		return []chimeNote{{523.25, 140 * time.Millisecond}, {659.25, 140 * time.Millisecond}, {783.99, 260 * time.Millisecond}}
	case UtterNoticed:
		return []chimeNote{{880, 120 * time.Millisecond}}
	case UtterPresence:
		return []chimeNote{{392, 200 * time.Millisecond}, {0, 60 * time.Millisecond}, {587.33, 320 * time.Millisecond}}
	case UtterAckRight:
		return []chimeNote{{659.25, 90 * time.Millisecond}, {880, 140 * time.Millisecond}}
	case UtterAckLeft:
		return []chimeNote{{880, 90 * time.Millisecond}, {659.25, 140 * time.Millisecond}}
	case UtterCleared:
		return []chimeNote{{783.99, 150 * time.Millisecond}, {587.33, 150 * time.Millisecond}, {392, 300 * time.Millisecond}}
	default:
		return nil
	}
}

// fade ramps the first and last few milliseconds of a note to avoid clicks.
type fade struct {
	s     beep.Streamer
	pos   int
	total int
	ramp  int
}

func (f *fade) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.s.Stream(samples)
	for i := 0; i < n; i++ {
		g := 1.0
		if f.ramp > 0 {
			if f.pos < f.ramp {
				g = float64(f.pos) / float64(f.ramp)
			} else if rem := f.total - f.pos; rem < f.ramp {
				g = float64(rem) / float64(f.ramp)
			}
		}
		samples[i][0] *= g
		samples[i][1] *= g
		f.pos++
	}
	return n, ok
}

func (f *fade) Err() error { return f.s.Err() }

// chimeStreamer renders notes as a single stream at the given gain, in
// doublings.
func chimeStreamer(sr beep.SampleRate, notes []chimeNote, volume float64) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, note := range notes {
		n := sr.N(note.Duration)
		if note.Freq <= 0 {
			parts = append(parts, beep.Silence(n))
			continue
		}
		tone, err := generators.SineTone(sr, note.Freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, &fade{s: beep.Take(n, tone), total: n, ramp: min(n/4, sr.N(5*time.Millisecond))})
	}
	return &effects.Volume{Streamer: beep.Seq(parts...), Base: 2, Volume: volume}, nil
}

// chimeWorker plays a motif for every voiced utterance. Audio output is
// optional: when the speaker cannot be opened the worker logs and exits.
func chimeWorker(ctx context.Context, volume float64, utterances <-chan Utterance, logger zerolog.Logger) {
	if err := speaker.Init(chimeSampleRate, chimeSampleRate.N(time.Second/10)); err != nil {
		logger.Warn().Err(err).Msg("audio output unavailable, chimes disabled")
		return
	}
	defer speaker.Close()
	logger.Debug().Msg("chimes ready")

	for {
		select {
		case u := <-utterances:
			s, err := chimeStreamer(chimeSampleRate, chimeNotes(u.Kind), volume)
			if err != nil {
				logger.Warn().Err(err).Str("kind", string(u.Kind)).Msg("could not build chime")
				continue
			}
			speaker.Play(s)

		case <-ctx.Done():
			return
		}
	}
}
