// Package signal turns microphone audio into the energy/centroid samples
// that drive the orb.
package signal

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/ryansname/visimos/src/affect"
)

const (
	DefaultFFTSize   = 1024
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Analyzer produces a byte spectrum the way a Web Audio AnalyserNode does:
// Blackman window, magnitude smoothed over time, decibels mapped onto 0..255.
// It is not safe for concurrent use.
type Analyzer struct {
	size      int
	smoothing float64
	minDB     float64
	maxDB     float64

	window   []float64
	ring     []float64
	pos      int
	scratch  []float64
	smoothed []float64
	bytes    []uint8
}

// NewAnalyzer creates an analyzer over the last size samples. size should
// be a power of two.
func NewAnalyzer(size int) *Analyzer {
	if size <= 0 {
		size = DefaultFFTSize
	}
	a := &Analyzer{
		size:      size,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
		window:    blackman(size),
		ring:      make([]float64, size),
		scratch:   make([]float64, size),
		smoothed:  make([]float64, size/2),
		bytes:     make([]uint8, size/2),
	}
	return a
}

// Bins is the number of frequency bins.
func (a *Analyzer) Bins() int { return a.size / 2 }

// Write appends time-domain samples.
func (a *Analyzer) Write(samples []float32) {
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) % a.size
	}
}

// ByteSpectrum analyzes the most recent window. The returned slice is
// reused by the next call.
func (a *Analyzer) ByteSpectrum() []uint8 {
	for i := range a.size {
		a.scratch[i] = a.ring[(a.pos+i)%a.size] * a.window[i]
	}
	spectrum := fft.FFTReal(a.scratch)

	scale := 1 / float64(a.size)
	span := a.maxDB - a.minDB
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) * scale
		v := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v

		db := 20 * math.Log10(v)
		scaled := math.Floor(255 / span * (db - a.minDB))
		a.bytes[k] = uint8(max(0, min(255, scaled)))
	}
	return a.bytes
}

// Sample analyzes the most recent window into the engine's input.
func (a *Analyzer) Sample() affect.Sample {
	return Features(a.ByteSpectrum())
}

// Features computes energy (mean byte level) and centroid from a byte spectrum.
// The centroid is normalized by the sum of bin indices.
func Features(data []uint8) affect.Sample {
	if len(data) == 0 {
		return affect.Sample{}
	}
	var sum, weighted, total float64
	for i, d := range data {
		sum += float64(d)
		weighted += float64(d) * float64(i)
		total += float64(i)
	}
	s := affect.Sample{Energy: sum / float64(len(data))}
	if total > 0 {
		s.Centroid = weighted / total
	}
	return s
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
