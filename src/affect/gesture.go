package affect

import "math"

// InteractionKind classifies a pointer event.
type InteractionKind string

const (
	Press   InteractionKind = "press"
	Drag    InteractionKind = "drag"
	Release InteractionKind = "release"
	Swipe   InteractionKind = "swipe"
	// Cancel abandons a gesture: no presence, no swipe, nothing saved.
	Cancel InteractionKind = "cancel"
)

// Direction of a classified swipe.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// InteractionEvent is what interaction adapters hand to the engine.
// Pos is normalized to the viewport. Duration and delta are only
// meaningful on release and swipe.
type InteractionEvent struct {
	Kind              InteractionKind `json:"kind"`
	Pos               Vec2            `json:"normalizedPos"`
	GestureDurationMs float64         `json:"gestureDurationMs,omitempty"`
	SwipeDeltaPx      float64         `json:"swipeDeltaPx,omitempty"`
}

// SwipeDirection reports the direction of a swipe-sized horizontal delta.
func SwipeDirection(deltaPx float64) (Direction, bool) {
	if math.Abs(deltaPx) <= SwipeThresholdPx {
		return "", false
	}
	if deltaPx > 0 {
		return Right, true
	}
	return Left, true
}

// Pointer is a raw pointer position in screen pixels along with the
// viewport it was measured in.
type Pointer struct {
	X, Y float64
	View Viewport
}

func (p Pointer) normalized() Vec2 {
	if !(p.View.W > 0 && p.View.H > 0) {
		return Vec2{X: 0.5, Y: 0.5}
	}
	return Vec2{X: p.X / p.View.W, Y: p.Y / p.View.H}.Unit()
}

// Unit clamps v into the unit square. Non-finite components fall back to
// the center, infinities clamp to the nearest edge.
func (v Vec2) Unit() Vec2 {
	return Vec2{X: unitCoord(v.X), Y: unitCoord(v.Y)}
}

func unitCoord(x float64) float64 {
	if math.IsNaN(x) {
		return 0.5
	}
	return clamp01(x)
}

// Tracker turns raw pointer down/move/up into interaction events.
// One tracker serves one pointer; it is not safe for concurrent use.
type Tracker struct {
	active  bool
	startMs float64
	startX  float64
}

// Active reports whether a gesture is in progress.
func (t *Tracker) Active() bool {
	return t.active
}

// Down starts a gesture.
func (t *Tracker) Down(p Pointer, nowMs float64) InteractionEvent {
	t.active = true
	t.startMs = nowMs
	t.startX = p.X
	return InteractionEvent{Kind: Press, Pos: p.normalized()}
}

// Move reports a drag while a gesture is active.
func (t *Tracker) Move(p Pointer) (InteractionEvent, bool) {
	if !t.active {
		return InteractionEvent{}, false
	}
	return InteractionEvent{Kind: Drag, Pos: p.normalized()}, true
}

// Up ends the gesture as a release, or a swipe when the horizontal
// displacement since Down exceeds the swipe threshold.
func (t *Tracker) Up(p Pointer, nowMs float64) (InteractionEvent, bool) {
	if !t.active {
		return InteractionEvent{}, false
	}
	t.active = false

	ev := InteractionEvent{
		Kind:              Release,
		Pos:               p.normalized(),
		GestureDurationMs: max(0, nowMs-t.startMs),
	}
	dx := p.X - t.startX
	if _, ok := SwipeDirection(dx); ok {
		ev.Kind = Swipe
		ev.SwipeDeltaPx = dx
	}
	return ev, true
}

// Cancel drops an in-progress gesture. The returned event tells the
// engine to leave its gesture state; ok is false when nothing was active.
func (t *Tracker) Cancel() (InteractionEvent, bool) {
	if !t.active {
		return InteractionEvent{}, false
	}
	t.active = false
	return InteractionEvent{Kind: Cancel, Pos: Vec2{X: 0.5, Y: 0.5}}, true
}
