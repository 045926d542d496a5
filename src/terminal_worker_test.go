package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryansname/visimos/src/affect"
)

func TestGlowAlpha(t *testing.T) {
	tests := []struct {
		name string
		d, r float64
		want float64
	}{
		{"centre", 0, 20, 1},
		{"inside the core", 4, 20, 1},
		{"halfway through the falloff", 12, 20, 0.5},
		{"edge", 20, 20, 0},
		{"outside", 30, 20, 0},
		{"no orb", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, glowAlpha(tt.d, tt.r), 1e-9)
		})
	}
}

func TestRasterize(t *testing.T) {
	f := affect.RenderFrame{
		Center:         affect.Vec2{X: 45, Y: 35},
		Radius:         20,
		GlowColor:      affect.RGB{R: 200, G: 100, B: 50},
		RimColor:       affect.RGB{R: 250, G: 250, B: 250},
		BackgroundTone: 70,
		RimRadius:      10,
		RimWidth:       3,
	}
	// 10×8 pixels of 10×10 viewport pixels; pixel (4,3) is centred on the orb
	r := rasterize(f, 10, 8, 10, 10)
	require.Len(t, r.Pix, 80)

	assert.Equal(t, f.GlowColor, r.At(4, 3), "core is the glow color")

	rim := r.At(5, 3) // 10px from centre
	assert.GreaterOrEqual(t, rim.R, uint8(237))
	assert.GreaterOrEqual(t, rim.B, uint8(237))

	topLeft, bottomRight := r.At(0, 0), r.At(9, 7)
	assert.Equal(t, uint8(10), topLeft.G)
	assert.Greater(t, topLeft.R, bottomRight.R, "background fades from the calm tone")
	assert.LessOrEqual(t, topLeft.R, uint8(70))
	assert.GreaterOrEqual(t, bottomRight.R, uint8(10))
}

func TestMixRGB(t *testing.T) {
	a, b := affect.RGB{R: 0, G: 100, B: 255}, affect.RGB{R: 255, G: 200, B: 55}
	assert.Equal(t, a, mixRGB(a, b, 0))
	assert.Equal(t, b, mixRGB(a, b, 1))
	assert.Equal(t, b, mixRGB(a, b, 3), "t is clamped")
	assert.Equal(t, affect.RGB{R: 128, G: 150, B: 155}, mixRGB(a, b, 0.5))
}

func TestTerminalMouse(t *testing.T) {
	view := &terminalView{
		vp:    newViewportHolder(affect.Viewport{W: 800, H: 480}),
		cellW: 8,
		cellH: 16,
		start: time.Now(),
	}

	ev, ok := view.mouse(tcell.NewEventMouse(10, 5, tcell.Button1, tcell.ModNone))
	require.True(t, ok)
	assert.Equal(t, affect.Press, ev.Kind)
	assert.InDelta(t, 84.0/800, ev.Pos.X, 1e-9)
	assert.InDelta(t, 88.0/480, ev.Pos.Y, 1e-9)

	_, ok = view.mouse(tcell.NewEventMouse(10, 5, tcell.Button1, tcell.ModNone))
	assert.False(t, ok, "held still")

	ev, ok = view.mouse(tcell.NewEventMouse(30, 5, tcell.Button1, tcell.ModNone))
	require.True(t, ok)
	assert.Equal(t, affect.Drag, ev.Kind)

	ev, ok = view.mouse(tcell.NewEventMouse(30, 5, tcell.ButtonNone, tcell.ModNone))
	require.True(t, ok)
	assert.Equal(t, affect.Swipe, ev.Kind)
	assert.InDelta(t, 160, ev.SwipeDeltaPx, 1e-9)

	_, ok = view.mouse(tcell.NewEventMouse(31, 5, tcell.ButtonNone, tcell.ModNone))
	assert.False(t, ok, "hover without a button")
}
