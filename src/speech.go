package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
)

// UtteranceKind names an advisory phrase.
type UtteranceKind string

const (
	UtterGreet    UtteranceKind = "greet"
	UtterNoticed  UtteranceKind = "noticed"
	UtterPresence UtteranceKind = "presence"
	UtterAckRight UtteranceKind = "ack_right"
	UtterAckLeft  UtteranceKind = "ack_left"
	UtterCleared  UtteranceKind = "cleared"
)

var utteranceText = map[UtteranceKind]string{
	UtterGreet:    "Welcome back.",
	UtterNoticed:  "I see you.",
	UtterPresence: "I am here.",
	UtterAckRight: "Okay.",
	UtterAckLeft:  "Understood.",
	UtterCleared:  "Memory cleared.",
}

// Utterance is something the orb would like to say.
type Utterance struct {
	Kind UtteranceKind `json:"kind"`
	Text string        `json:"text"`
	At   time.Time     `json:"at"`
}

func newUtterance(kind UtteranceKind, at time.Time) Utterance {
	return Utterance{Kind: kind, Text: utteranceText[kind], At: at}
}

func ackKind(dir affect.Direction) UtteranceKind {
	if dir == affect.Left {
		return UtterAckLeft
	}
	return UtterAckRight
}

// speechInterceptorWorker forwards utterances to outputChan, dropping any
// that arrive while the previous one is still within its cooldown.
func speechInterceptorWorker(
	ctx context.Context,
	cooldown time.Duration,
	now func() time.Time,
	inputChan <-chan Utterance,
	outputChan chan<- Utterance,
	logger zerolog.Logger,
) {
	logger.Debug().Dur("cooldown", cooldown).Msg("speech interceptor started")
	var lastVoiced time.Time
	voiced := false

	for {
		select {
		case u := <-inputChan:
			t := now()
			if voiced && t.Sub(lastVoiced) < cooldown {
				utterancesTotal.WithLabelValues(string(u.Kind), "suppressed").Inc()
				logger.Debug().Str("kind", string(u.Kind)).Msg("speech cooling down, dropping utterance")
				continue
			}
			lastVoiced, voiced = t, true
			utterancesTotal.WithLabelValues(string(u.Kind), "voiced").Inc()

			select {
			case outputChan <- u:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			logger.Debug().Msg("speech interceptor stopped")
			return
		}
	}
}
