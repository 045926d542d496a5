package affect

// BlinkPhase names a window of the blink timeline.
type BlinkPhase int

const (
	BlinkIdle BlinkPhase = iota
	BlinkClosing
	BlinkHeld
	BlinkOpening
)

func (p BlinkPhase) String() string {
	switch p {
	case BlinkClosing:
		return "closing"
	case BlinkHeld:
		return "held"
	case BlinkOpening:
		return "opening"
	default:
		return "idle"
	}
}

// Rand is the random source used for blink cadence and the startup nudge.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// BlinkState tracks the involuntary blink cycle.
type BlinkState struct {
	LastBlink    float64    `json:"lastBlink"`    // ms, start of the current/last blink
	NextInterval float64    `json:"nextInterval"` // ms, 6000..9000
	Progress     float64    `json:"progress"`     // 0 open, 1 shut
	Phase        BlinkPhase `json:"phase"`
	Count        int        `json:"count"` // blinks started after the first
}

// NewBlinkState starts the cycle at nowMs; the first window is a blink.
func NewBlinkState(nowMs float64, r Rand) BlinkState {
	return BlinkState{
		LastBlink:    nowMs,
		NextInterval: nextBlinkInterval(r),
	}
}

// Update advances the cycle to nowMs and returns the closure fraction.
// A blink in progress always runs its full 520ms; the interval only decides
// when the next one starts.
func (b *BlinkState) Update(nowMs float64, r Rand) float64 {
	if nowMs-b.LastBlink > b.NextInterval {
		b.LastBlink = nowMs
		b.NextInterval = nextBlinkInterval(r)
		b.Count++
	}

	b.Progress, b.Phase = BlinkProgress(nowMs - b.LastBlink)
	return b.Progress
}

// BlinkProgress is the closure fraction sinceMs after a blink started.
func BlinkProgress(sinceMs float64) (float64, BlinkPhase) {
	switch {
	case sinceMs < 0:
		return 0, BlinkIdle
	case sinceMs < BlinkCloseMs:
		return sinceMs / BlinkCloseMs, BlinkClosing
	case sinceMs < BlinkHoldEndMs:
		return 1, BlinkHeld
	case sinceMs < BlinkOpenEndMs:
		return 1 - (sinceMs-BlinkHoldEndMs)/(BlinkOpenEndMs-BlinkHoldEndMs), BlinkOpening
	default:
		return 0, BlinkIdle
	}
}

func nextBlinkInterval(r Rand) float64 {
	f := r.Float64()
	if f < 0 || f >= 1 {
		f = 0
	}
	return BlinkIntervalMin + f*BlinkIntervalSpan
}
