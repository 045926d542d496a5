// Package affect turns microphone energy, pointer gestures and elapsed time
// into the orb's emotional state and per-frame visual parameters.
//
// Time is expressed as float64 milliseconds since the engine started. All
// state is owned by a single Engine and must be driven from one goroutine.
package affect

const (
	// Position soft margin (normalized viewport units)
	PositionMin = 0.08
	PositionMax = 0.92

	VelocityDamping = 0.9  // per tick
	SizeRelaxRate   = 0.06 // fraction of the remaining gap closed per tick

	RestingSize     = 0.20
	BreathAmplitude = 0.01
	BreathPeriodMs  = 3000.0

	// Emotion estimator
	WarmthRetention = 0.95
	JoyFloor        = 30.0
	JoySpan         = 120.0
	CalmSpan        = 200.0
	MaxEnergy       = 255.0

	// Audio inflation
	InflateThreshold = 45.0
	InflateOffset    = 40.0
	InflateSpan      = 140.0
	InflateMax       = 0.8

	// Blink timeline (ms since blink start)
	BlinkCloseMs      = 200.0
	BlinkHoldEndMs    = 320.0
	BlinkOpenEndMs    = 520.0
	BlinkIntervalMin  = 6000.0
	BlinkIntervalSpan = 3000.0
	BlinkCompression  = 0.6

	// Gesture impulses and size overrides
	PressImpulse     = 0.12
	DragImpulse      = 0.09
	SwipeImpulse     = 0.22
	PressScale       = 1.25
	DragScale        = 1.4
	PresenceScale    = 1.6
	LongPressMs      = 700.0
	SwipeThresholdPx = 80.0

	// Profile trait adjustments
	PresenceWarmthGain = 0.03
	SwipeWarmthShift   = 0.02

	// Startup drift
	NudgeMagnitude = 0.01
)
