package affect

import "math"

// Sample is one reading from the signal source.
type Sample struct {
	Energy   float64 `json:"energy"`   // mean byte spectrum, 0..255
	Centroid float64 `json:"centroid"` // spectral centroid, bin units
}

// Valid reports whether the sample may drive the estimator.
// Anything else is treated as no signal.
func (s Sample) Valid() bool {
	return !math.IsNaN(s.Energy) && s.Energy >= 0 && s.Energy <= MaxEnergy
}

// EmotionState is the fast per-frame affect vector.
type EmotionState struct {
	Warmth float64 `json:"warmth"`
	Calm   float64 `json:"calm"`
}

// InitialEmotion is the state at process start.
func InitialEmotion() EmotionState {
	return EmotionState{Warmth: 0.5, Calm: 1.0}
}

// Joy maps raw energy onto [0,1].
func Joy(energy float64) float64 {
	return clamp01((energy - JoyFloor) / JoySpan)
}

// Update folds one sample into the state.
// Warmth is a single-pole low-pass of joy; calm follows loudness directly.
// When the sample is loud enough it also returns the factor by which the
// orb's resting size should be inflated.
func (e *EmotionState) Update(s Sample) (inflate float64, ok bool) {
	if !s.Valid() {
		return 0, false
	}

	e.Warmth = e.Warmth*WarmthRetention + Joy(s.Energy)*(1-WarmthRetention)
	e.Calm = clamp01(1 - s.Energy/CalmSpan)

	if s.Energy > InflateThreshold {
		return 1 + min(InflateMax, (s.Energy-InflateOffset)/InflateSpan), true
	}
	return 0, false
}

// Nudge takes one smoothing step toward a slow trait value.
func (e *EmotionState) Nudge(trait float64) {
	e.Warmth = e.Warmth*WarmthRetention + clamp01(trait)*(1-WarmthRetention)
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(hi, x))
}
