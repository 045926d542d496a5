package affect

import "math"

// RGB is an 8-bit color triple.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Color anchors
var (
	Lavender = RGB{R: 180, G: 160, B: 255}
	Gold     = RGB{R: 255, G: 215, B: 120}
	Rose     = RGB{R: 255, G: 150, B: 170}

	PressColor = RGB{R: 255, G: 230, B: 170}
	DragColor  = RGB{R: 255, G: 210, B: 140}
)

// WarmthPivot separates the lavender→gold and gold→rose ramps.
const WarmthPivot = 0.6

const rimLift = 20

// Viewport is the drawable area in pixels.
type Viewport struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Visual is the output of the mapper for one frame.
type Visual struct {
	Radius         float64 `json:"radius"`
	Glow           RGB     `json:"glow"`
	Rim            RGB     `json:"rim"`
	BackgroundTone int     `json:"backgroundTone"`
}

// Blend returns the unfloored color for warmth.
func Blend(warmth float64) [3]float64 {
	warmth = clamp01(warmth)
	if warmth < WarmthPivot {
		return lerpRGB(Lavender, Gold, warmth/WarmthPivot)
	}
	return lerpRGB(Gold, Rose, min(1, (warmth-WarmthPivot)/(1-WarmthPivot)))
}

// ColorFor maps warmth to the emotion-driven glow color.
func ColorFor(warmth float64) RGB {
	c := Blend(warmth)
	return RGB{R: floorByte(c[0]), G: floorByte(c[1]), B: floorByte(c[2])}
}

// BackgroundTone is the red channel of the background base tone.
// Lower calm gives a warmer background.
func BackgroundTone(calm float64) int {
	return int(math.Floor(30 + (1-clamp01(calm))*40))
}

// Radius is the rendered orb radius; blinking compresses by up to 60%.
func Radius(vp Viewport, size, blink float64) float64 {
	base := min(vp.W, vp.H) * size
	return base * (1 - clamp01(blink)*BlinkCompression)
}

// Rim lifts every channel of c, capped at 255.
func Rim(c RGB) RGB {
	return RGB{R: lift(c.R), G: lift(c.G), B: lift(c.B)}
}

// MapVisual is the pure emotion → visual mapping. A non-nil override
// replaces the emotion-driven color.
func MapVisual(e EmotionState, blink float64, override *RGB, size float64, vp Viewport) Visual {
	glow := ColorFor(e.Warmth)
	if override != nil {
		glow = *override
	}
	return Visual{
		Radius:         Radius(vp, size, blink),
		Glow:           glow,
		Rim:            Rim(glow),
		BackgroundTone: BackgroundTone(e.Calm),
	}
}

func lerpRGB(a, b RGB, t float64) [3]float64 {
	return [3]float64{
		lerp(float64(a.R), float64(b.R), t),
		lerp(float64(a.G), float64(b.G), t),
		lerp(float64(a.B), float64(b.B), t),
	}
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func floorByte(v float64) uint8 {
	return uint8(clamp(math.Floor(v), 0, 255))
}

func lift(c uint8) uint8 {
	return uint8(min(255, int(c)+rimLift))
}
