package affect

import (
	"math/rand/v2"
	"time"

	"github.com/ryansname/visimos/src/profile"
)

// Hooks are advisory callbacks fired on semantic transitions. They run on
// the engine's goroutine and must not block. Nil hooks are skipped.
type Hooks struct {
	OnGreet             func()
	OnAcknowledge       func(Direction)
	OnPresenceConfirmed func()
	OnNoticed           func()
	OnMemoryCleared     func()
	// OnProfileChanged asks the host to persist p.
	OnProfileChanged func(p profile.Profile)
}

// SignalSource yields the freshest audio sample, if any arrived since the
// last poll.
type SignalSource interface {
	Poll() (Sample, bool)
}

// Options configures an Engine. Every field is optional.
type Options struct {
	Signal   SignalSource
	Viewport func() Viewport
	Hooks    Hooks
	Rand     Rand
	// Now stamps profile visits.
	Now func() time.Time
}

// GestureOverride is the short-lived state of an active gesture.
type GestureOverride struct {
	Active   bool `json:"active"`
	HasColor bool `json:"hasColor"`
	Color    RGB  `json:"color"`
}

// EngineState is everything the engine owns.
type EngineState struct {
	Orb      OrbState        `json:"orb"`
	Velocity Vec2            `json:"velocity"`
	Emotion  EmotionState    `json:"emotion"`
	Blink    BlinkState      `json:"blink"`
	Gesture  GestureOverride `json:"gesture"`
	Profile  profile.Profile `json:"profile"`
	// Resting lets breathing retarget the orb's size.
	Resting bool `json:"resting"`
}

// RenderFrame is the per-frame output handed to renderers.
type RenderFrame struct {
	Center         Vec2         `json:"center"` // pixels
	Radius         float64      `json:"radius"`
	GlowColor      RGB          `json:"glowColor"`
	RimColor       RGB          `json:"rimColor"`
	BackgroundTone int          `json:"backgroundTone"`
	RimRadius      float64      `json:"rimRadius"`
	RimWidth       float64      `json:"rimWidth"`
	BlinkProgress  float64      `json:"blinkProgress"`
	Emotion        EmotionState `json:"emotion"`
}

var defaultViewport = Viewport{W: 1280, H: 720}

// Engine is the affective animation controller. It is not safe for
// concurrent use; drive it from a single goroutine.
type Engine struct {
	state   EngineState
	signal  SignalSource
	vp      func() Viewport
	hooks   Hooks
	rand    Rand
	now     func() time.Time
	greeted bool
}

// New starts an engine at time zero with a waking blink and a small random
// drift.
func New(opts Options) *Engine {
	e := &Engine{
		signal: opts.Signal,
		vp:     opts.Viewport,
		hooks:  opts.Hooks,
		rand:   opts.Rand,
		now:    opts.Now,
	}
	if e.vp == nil {
		e.vp = func() Viewport { return defaultViewport }
	}
	if e.rand == nil {
		e.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if e.now == nil {
		e.now = time.Now
	}

	e.state = EngineState{
		Orb:     NewOrbState(),
		Emotion: InitialEmotion(),
		Blink:   NewBlinkState(0, e.rand),
		Profile: profile.Default(),
		Resting: true,
	}
	e.state.Velocity = Vec2{
		X: (e.rand.Float64() - 0.5) * NudgeMagnitude,
		Y: (e.rand.Float64() - 0.5) * NudgeMagnitude,
	}
	return e
}

// Tick advances one frame to nowMs (milliseconds since start).
func (e *Engine) Tick(nowMs float64) RenderFrame {
	s := &e.state

	if e.signal != nil {
		if sample, ok := e.signal.Poll(); ok {
			if inflate, loud := s.Emotion.Update(sample); loud && !s.Gesture.Active {
				s.Orb.TargetSize = s.Orb.BaseSize * inflate
				s.Resting = false
			}
		}
	}

	blink := s.Blink.Update(nowMs, e.rand)
	s.Orb.Step(&s.Velocity)

	var override *RGB
	if s.Gesture.HasColor {
		override = &s.Gesture.Color
	}
	vp := e.viewport()
	v := MapVisual(s.Emotion, blink, override, s.Orb.Size, vp)
	s.Orb.Color = v.Glow

	r := max(0, v.Radius)
	return RenderFrame{
		Center:         Vec2{X: s.Orb.Position.X * vp.W, Y: s.Orb.Position.Y * vp.H},
		Radius:         r,
		GlowColor:      v.Glow,
		RimColor:       v.Rim,
		BackgroundTone: v.BackgroundTone,
		RimRadius:      r * 0.6,
		RimWidth:       max(3, 0.01*vp.W),
		BlinkProgress:  blink,
		Emotion:        s.Emotion,
	}
}

// Breathe runs the slow breathing timer.
func (e *Engine) Breathe(nowMs float64) {
	s := &e.state
	s.Orb.Breathe(nowMs)
	if s.Resting && !s.Gesture.Active {
		s.Orb.TargetSize = s.Orb.BaseSize
	}
}

// Handle applies one interaction event.
func (e *Engine) Handle(ev InteractionEvent) {
	s := &e.state
	ev.Pos = ev.Pos.Unit()

	switch ev.Kind {
	case Press:
		s.Orb.Pull(&s.Velocity, ev.Pos, PressImpulse)
		s.Orb.TargetSize = s.Orb.BaseSize * PressScale
		s.Gesture = GestureOverride{Active: true, HasColor: true, Color: PressColor}
		s.Resting = false
		fire(e.hooks.OnNoticed)

	case Drag:
		s.Orb.Pull(&s.Velocity, ev.Pos, DragImpulse)
		s.Orb.TargetSize = s.Orb.BaseSize * DragScale
		s.Gesture = GestureOverride{Active: true, HasColor: true, Color: DragColor}
		s.Resting = false

	case Cancel:
		s.Gesture = GestureOverride{}
		s.Orb.TargetSize = s.Orb.BaseSize
		s.Resting = true

	case Release, Swipe:
		qualifying := e.release(ev)
		if ev.Kind == Swipe {
			if dir, ok := SwipeDirection(ev.SwipeDeltaPx); ok {
				e.swipe(dir)
				qualifying = true
			}
		}
		if qualifying {
			s.Profile.Touch(e.now())
			if e.hooks.OnProfileChanged != nil {
				e.hooks.OnProfileChanged(s.Profile)
			}
		}
	}
}

// release ends the gesture and reports whether it confirmed presence.
func (e *Engine) release(ev InteractionEvent) bool {
	s := &e.state
	s.Gesture = GestureOverride{}
	s.Emotion.Nudge(s.Profile.Warmth)

	if ev.GestureDurationMs >= LongPressMs {
		// Afterglow holds until audio or the next gesture takes over
		s.Orb.TargetSize = s.Orb.BaseSize * PresenceScale
		s.Resting = false
		s.Profile.AdjustWarmth(PresenceWarmthGain)
		fire(e.hooks.OnPresenceConfirmed)
		return true
	}

	s.Orb.TargetSize = s.Orb.BaseSize
	s.Resting = true
	return false
}

func (e *Engine) swipe(dir Direction) {
	s := &e.state
	switch dir {
	case Right:
		s.Velocity.X += SwipeImpulse
		s.Profile.AdjustWarmth(-SwipeWarmthShift)
	case Left:
		s.Velocity.X -= SwipeImpulse
		s.Profile.AdjustWarmth(SwipeWarmthShift)
	}
	if e.hooks.OnAcknowledge != nil {
		e.hooks.OnAcknowledge(dir)
	}
}

// Restore installs a loaded profile. found reports that an existing
// record was read; the first such restore greets.
func (e *Engine) Restore(p profile.Profile, found bool) {
	if p.Validate() != nil {
		p, found = profile.Default(), false
	}
	e.state.Profile = p
	if found && !e.greeted {
		e.greeted = true
		fire(e.hooks.OnGreet)
	}
}

// ResetMemory forgets the profile.
func (e *Engine) ResetMemory() {
	e.state.Profile = profile.Default()
	fire(e.hooks.OnMemoryCleared)
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() EngineState {
	s := e.state
	if s.Profile.LastSeen != nil {
		seen := *s.Profile.LastSeen
		s.Profile.LastSeen = &seen
	}
	return s
}

func (e *Engine) viewport() Viewport {
	vp := e.vp()
	if vp.W <= 0 || vp.H <= 0 {
		return defaultViewport
	}
	return vp
}

func fire(f func()) {
	if f != nil {
		f()
	}
}
