package main

import (
	"context"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
)

// Background gradient end stop, top-left starts at the calm tone.
var backgroundEnd = affect.RGB{R: 10, G: 10, B: 20}

const (
	glowCore  = 0.2 // fraction of the radius drawn fully opaque
	rimAlpha  = 0.95
	statusMsg = " visimos  q quit  r forget "
)

// raster is a grid of pixel colors, row-major.
type raster struct {
	W, H int
	Pix  []affect.RGB
}

func (r raster) At(x, y int) affect.RGB {
	return r.Pix[y*r.W+x]
}

// rasterize paints a frame onto a w×h pixel grid where each pixel covers
// pw×ph viewport pixels. Colors are sampled at pixel centers.
func rasterize(f affect.RenderFrame, w, h int, pw, ph float64) raster {
	out := raster{W: w, H: h, Pix: make([]affect.RGB, w*h)}
	vw, vh := float64(w)*pw, float64(h)*ph
	diag := vw*vw + vh*vh
	start := affect.RGB{R: uint8(clampInt(f.BackgroundTone, 0, 255)), G: 10, B: 30}

	for y := 0; y < h; y++ {
		py := (float64(y) + 0.5) * ph
		for x := 0; x < w; x++ {
			px := (float64(x) + 0.5) * pw

			t := 0.0
			if diag > 0 {
				t = (px*vw + py*vh) / diag
			}
			c := mixRGB(start, backgroundEnd, t)

			d := math.Hypot(px-f.Center.X, py-f.Center.Y)
			if a := glowAlpha(d, f.Radius); a > 0 {
				c = mixRGB(c, f.GlowColor, a)
			}
			if f.RimWidth > 0 && math.Abs(d-f.RimRadius) <= f.RimWidth/2 {
				c = mixRGB(c, f.RimColor, rimAlpha)
			}
			out.Pix[y*w+x] = c
		}
	}
	return out
}

func glowAlpha(d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	inner := r * glowCore
	if d <= inner {
		return 1
	}
	return 1 - (d-inner)/(r-inner)
}

func mixRGB(a, b affect.RGB, t float64) affect.RGB {
	t = math.Max(0, math.Min(1, t))
	m := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-t) + float64(y)*t))
	}
	return affect.RGB{R: m(a.R, b.R), G: m(a.G, b.G), B: m(a.B, b.B)}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func tcellColor(c affect.RGB) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// cellPointer converts a mouse cell into viewport pixels at the cell center.
func cellPointer(col, row int, cellW, cellH float64, vp affect.Viewport) affect.Pointer {
	return affect.Pointer{X: (float64(col) + 0.5) * cellW, Y: (float64(row) + 0.5) * cellH, View: vp}
}

// terminalView draws frames with half-block characters, so each cell holds
// two vertically stacked pixels.
type terminalView struct {
	screen  tcell.Screen
	vp      *viewportHolder
	cellW   float64
	cellH   float64
	cols    int
	rows    int
	tracker affect.Tracker
	down    bool
	lastCol int
	lastRow int
	start   time.Time
}

func (v *terminalView) resize() {
	v.cols, v.rows = v.screen.Size()
	v.vp.Set(affect.Viewport{W: float64(v.cols) * v.cellW, H: float64(v.rows) * v.cellH})
}

func (v *terminalView) draw(f affect.RenderFrame) {
	if v.cols == 0 || v.rows == 0 {
		return
	}
	px := rasterize(f, v.cols, v.rows*2, v.cellW, v.cellH/2)
	for row := 0; row < v.rows; row++ {
		for col := 0; col < v.cols; col++ {
			top, bottom := px.At(col, row*2), px.At(col, row*2+1)
			style := tcell.StyleDefault.Foreground(tcellColor(top)).Background(tcellColor(bottom))
			v.screen.SetContent(col, row, '▀', nil, style)
		}
	}

	hint := tcell.StyleDefault.Foreground(tcell.NewRGBColor(120, 110, 150)).Background(tcellColor(px.At(0, px.H-1)))
	for i, r := range statusMsg {
		if i >= v.cols {
			break
		}
		v.screen.SetContent(i, v.rows-1, r, nil, hint)
	}
	v.screen.Show()
}

// mouse turns button-1 state changes into interaction events.
func (v *terminalView) mouse(ev *tcell.EventMouse) (affect.InteractionEvent, bool) {
	col, row := ev.Position()
	pressed := ev.Buttons()&tcell.Button1 != 0
	p := cellPointer(col, row, v.cellW, v.cellH, v.vp.Get())
	nowMs := float64(time.Since(v.start).Milliseconds())

	switch {
	case pressed && !v.down:
		v.down, v.lastCol, v.lastRow = true, col, row
		return v.tracker.Down(p, nowMs), true
	case pressed && v.down:
		if col == v.lastCol && row == v.lastRow {
			return affect.InteractionEvent{}, false
		}
		v.lastCol, v.lastRow = col, row
		return v.tracker.Move(p)
	case !pressed && v.down:
		v.down = false
		return v.tracker.Up(p, nowMs)
	}
	return affect.InteractionEvent{}, false
}

// terminalWorker owns the screen: it draws frames and turns mouse and key
// input into orb interactions.
func terminalWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	orb orbControl,
	vp *viewportHolder,
	cellW, cellH float64,
	frames <-chan affect.RenderFrame,
	logger zerolog.Logger,
) {
	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Error().Err(err).Msg("no terminal available")
		return
	}
	if err := screen.Init(); err != nil {
		logger.Error().Err(err).Msg("terminal init failed")
		return
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	view := &terminalView{screen: screen, vp: vp, cellW: cellW, cellH: cellH, start: time.Now()}
	view.resize()
	logger.Info().Int("cols", view.cols).Int("rows", view.rows).Msg("terminal renderer started")

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case f := <-frames:
			view.draw(f)

		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				view.resize()
				screen.Sync()

			case *tcell.EventMouse:
				if ie, ok := view.mouse(ev); ok {
					orb.Interact("terminal", ie)
				}

			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
					cancel()
					return
				case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
					cancel()
					return
				case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
					orb.ResetMemory()
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
