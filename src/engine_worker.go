package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
	"github.com/ryansname/visimos/src/mood"
	"github.com/ryansname/visimos/src/profile"
	"github.com/ryansname/visimos/src/scheduler"
)

// Telemetry is the periodic summary published to MQTT and the console.
type Telemetry struct {
	At            time.Time           `json:"at"`
	Mood          string              `json:"mood"`
	Emotion       affect.EmotionState `json:"emotion"`
	Position      affect.Vec2         `json:"position"`
	Size          float64             `json:"size"`
	Visits        int                 `json:"visits"`
	ProfileWarmth float64             `json:"profileWarmth"`
	Blinks        int                 `json:"blinks"`
	EnergyMin     float64             `json:"energyMin"`
	EnergyMax     float64             `json:"energyMax"`
}

type profileOp int

const (
	profileSave profileOp = iota
	profileClear
)

type profileRequest struct {
	Op      profileOp
	Profile profile.Profile
}

// energyRange reports rolling signal bounds; *signal.Mailbox satisfies it.
type energyRange interface {
	Range() (lo, hi float64)
}

// viewportHolder shares the current drawable size between the renderer that
// measures it and the engine that reads it each frame.
type viewportHolder struct {
	v atomic.Pointer[affect.Viewport]
}

func newViewportHolder(vp affect.Viewport) *viewportHolder {
	h := &viewportHolder{}
	h.Set(vp)
	return h
}

func (h *viewportHolder) Set(vp affect.Viewport) { h.v.Store(&vp) }
func (h *viewportHolder) Get() affect.Viewport   { return *h.v.Load() }

// OrbIntervals are the periods of the engine's scheduled tasks.
type OrbIntervals struct {
	Frame     time.Duration
	Breath    time.Duration
	Telemetry time.Duration
}

// OrbDeps wires an Orb to its collaborators. Nil channels are skipped.
type OrbDeps struct {
	Clock     scheduler.Clock
	Intervals OrbIntervals
	Signal    affect.SignalSource
	Levels    energyRange
	Viewport  *viewportHolder
	Rand      affect.Rand

	Frames    chan<- affect.RenderFrame
	Telemetry chan<- Telemetry
	Speech    chan<- Utterance
	Profile   chan<- profileRequest
}

// Orb owns the engine and the scheduler goroutine that drives it. Its
// methods are safe to call from any goroutine.
type Orb struct {
	sched  *scheduler.Scheduler
	engine *affect.Engine
	mood   *mood.Classifier
	deps   OrbDeps
	logger zerolog.Logger
}

// OrbStatus is a point-in-time view for consoles.
type OrbStatus struct {
	State   affect.EngineState
	Mood    mood.Mood
	Elapsed time.Duration
	Tasks   []scheduler.TaskStats
}

func newOrb(deps OrbDeps, logger zerolog.Logger) *Orb {
	if deps.Clock == nil {
		deps.Clock = scheduler.SystemClock{}
	}
	if deps.Viewport == nil {
		deps.Viewport = newViewportHolder(affect.Viewport{W: 1280, H: 720})
	}

	o := &Orb{
		sched:  scheduler.New(deps.Clock, 256),
		deps:   deps,
		logger: logger,
	}

	say := func(kind UtteranceKind) {
		if !trySend(deps.Speech, newUtterance(kind, deps.Clock.Now())) && deps.Speech != nil {
			o.logger.Debug().Str("kind", string(kind)).Msg("speech queue full")
		}
	}

	o.engine = affect.New(affect.Options{
		Signal:   deps.Signal,
		Viewport: deps.Viewport.Get,
		Rand:     deps.Rand,
		Now:      deps.Clock.Now,
		Hooks: affect.Hooks{
			OnGreet:             func() { say(UtterGreet) },
			OnNoticed:           func() { say(UtterNoticed) },
			OnPresenceConfirmed: func() { say(UtterPresence) },
			OnAcknowledge:       func(d affect.Direction) { say(ackKind(d)) },
			OnMemoryCleared: func() {
				say(UtterCleared)
				o.requestProfile(profileRequest{Op: profileClear, Profile: profile.Default()})
			},
			OnProfileChanged: func(p profile.Profile) {
				o.requestProfile(profileRequest{Op: profileSave, Profile: p})
			},
		},
	})
	o.mood = mood.NewClassifier(mood.DefaultThresholds, o.engine.Snapshot().Emotion.Warmth)

	o.sched.Every("frame", deps.Intervals.Frame, o.frame)
	o.sched.Every("breath", deps.Intervals.Breath, func(time.Time) {
		o.engine.Breathe(scheduler.Millis(o.sched.Elapsed()))
	})
	o.sched.Every("telemetry", deps.Intervals.Telemetry, o.telemetry)
	return o
}

func (o *Orb) frame(time.Time) {
	start := time.Now()
	f := o.engine.Tick(scheduler.Millis(o.sched.Elapsed()))
	frameDuration.Observe(time.Since(start).Seconds())
	framesRendered.Inc()

	if o.deps.Frames != nil && !trySend(o.deps.Frames, f) {
		framesDropped.WithLabelValues("engine").Inc()
	}
}

func (o *Orb) telemetry(now time.Time) {
	s := o.engine.Snapshot()
	m, changed := o.mood.Update(s.Emotion.Warmth)
	if changed {
		o.logger.Info().Stringer("mood", m).Float64("warmth", s.Emotion.Warmth).Msg("mood changed")
	}

	emotionWarmth.Set(s.Emotion.Warmth)
	emotionCalm.Set(s.Emotion.Calm)
	profileVisits.Set(float64(s.Profile.Visits))
	for _, candidate := range mood.All() {
		v := 0.0
		if candidate == m {
			v = 1
		}
		moodState.WithLabelValues(candidate.String()).Set(v)
	}

	t := Telemetry{
		At:            now,
		Mood:          m.String(),
		Emotion:       s.Emotion,
		Position:      s.Orb.Position,
		Size:          s.Orb.Size,
		Visits:        s.Profile.Visits,
		ProfileWarmth: s.Profile.Warmth,
		Blinks:        s.Blink.Count,
	}
	if o.deps.Levels != nil {
		t.EnergyMin, t.EnergyMax = o.deps.Levels.Range()
		signalEnergyRange.WithLabelValues("min").Set(t.EnergyMin)
		signalEnergyRange.WithLabelValues("max").Set(t.EnergyMax)
	}
	trySend(o.deps.Telemetry, t)
}

func (o *Orb) requestProfile(req profileRequest) {
	if o.deps.Profile == nil {
		return
	}
	if !trySend(o.deps.Profile, req) {
		o.logger.Warn().Msg("profile queue full, dropping write")
	}
}

// Restore installs a loaded profile before the orb starts running.
func (o *Orb) Restore(p profile.Profile, found bool) {
	if err := o.sched.Post(func() { o.engine.Restore(p, found) }); err != nil {
		o.logger.Warn().Err(err).Msg("could not restore profile")
	}
}

// Interact queues an interaction event from source.
func (o *Orb) Interact(source string, ev affect.InteractionEvent) {
	err := o.sched.Post(func() {
		interactionsTotal.WithLabelValues(string(ev.Kind), source).Inc()
		o.engine.Handle(ev)
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("source", source).Str("kind", string(ev.Kind)).Msg("dropping interaction")
	}
}

// ResetMemory forgets the visit profile.
func (o *Orb) ResetMemory() {
	if err := o.sched.Post(o.engine.ResetMemory); err != nil {
		o.logger.Warn().Err(err).Msg("dropping reset")
	}
}

// Status captures the engine state on its own goroutine.
func (o *Orb) Status(ctx context.Context) (OrbStatus, error) {
	var st OrbStatus
	err := o.sched.Call(ctx, func() {
		st = OrbStatus{
			State:   o.engine.Snapshot(),
			Mood:    o.mood.Current,
			Elapsed: o.sched.Elapsed(),
			Tasks:   o.sched.Stats(),
		}
	})
	return st, err
}

// engineWorker runs the scheduler loop until ctx is done.
func engineWorker(ctx context.Context, orb *Orb) {
	orb.logger.Info().Msg("engine started")
	if err := orb.sched.Run(ctx); err != nil && ctx.Err() == nil {
		orb.logger.Error().Err(err).Msg("engine loop stopped")
	}
	orb.logger.Info().Msg("engine stopped")
}

func trySend[T any](ch chan<- T, v T) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
