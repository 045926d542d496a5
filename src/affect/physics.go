package affect

import "math"

// Vec2 is a point or velocity in normalized viewport units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OrbState is the orb's body. Position stays inside the soft margin.
type OrbState struct {
	Position   Vec2    `json:"position"`
	Size       float64 `json:"size"`
	BaseSize   float64 `json:"baseSize"`
	TargetSize float64 `json:"targetSize"`
	Color      RGB     `json:"color"`
}

// NewOrbState returns a centered orb at resting size.
func NewOrbState() OrbState {
	return OrbState{
		Position:   Vec2{X: 0.5, Y: 0.5},
		Size:       RestingSize,
		BaseSize:   RestingSize,
		TargetSize: RestingSize,
		Color:      Gold,
	}
}

// Step integrates one tick: move, damp, clamp, relax size. A non-finite
// velocity is dropped so the position always stays inside the margin.
func (o *OrbState) Step(v *Vec2) {
	if !finite(v.X) || !finite(v.Y) {
		*v = Vec2{}
	}
	o.Position.X += v.X
	o.Position.Y += v.Y

	v.X *= VelocityDamping
	v.Y *= VelocityDamping

	// Clamped, not bounced
	o.Position.X = clamp(o.Position.X, PositionMin, PositionMax)
	o.Position.Y = clamp(o.Position.Y, PositionMin, PositionMax)

	o.Size += (o.TargetSize - o.Size) * SizeRelaxRate
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Breathe recomputes the slow resting-size drift.
func (o *OrbState) Breathe(elapsedMs float64) {
	o.BaseSize = RestingSize + BreathAmplitude*math.Sin(elapsedMs/BreathPeriodMs)
}

// Pull adds an impulse toward target scaled by k.
func (o *OrbState) Pull(v *Vec2, target Vec2, k float64) {
	v.X += (target.X - o.Position.X) * k
	v.Y += (target.Y - o.Position.Y) * k
}
