// Package waves synthesizes waveform tables for upload to arbitrary
// waveform generators.  All functions return one period sampled at n
// points, scaled to amplitude amp (volts, zero to peak) about offset.
package waves

import (
	"math"
	"math/rand"
)

// Sine returns one period of a sine wave.  phase is in radians.
func Sine(n int, amp, offset, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*math.Sin(2*math.Pi*float64(i)/float64(n)+phase)
	}
	return out
}

// Triangle returns one period of a triangle wave starting at its minimum
func Triangle(n int, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		// fraction of the period, folded about the midpoint
		f := float64(i) / float64(n)
		var v float64
		if f < 0.5 {
			v = 4*f - 1
		} else {
			v = 3 - 4*f
		}
		out[i] = offset + amp*v
	}
	return out
}

// Sawtooth returns one period of a rising sawtooth
func Sawtooth(n int, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*(2*float64(i)/float64(n)-1)
	}
	return out
}

// Ramp returns a linear sweep from lo to hi inclusive
func Ramp(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Pulse returns one period of a rectangular pulse.  duty is the fraction
// of the period spent at offset+amp, the remainder at offset-amp.
func Pulse(n int, amp, offset, duty float64) []float64 {
	out := make([]float64, n)
	high := int(duty * float64(n))
	for i := range out {
		if i < high {
			out[i] = offset + amp
		} else {
			out[i] = offset - amp
		}
	}
	return out
}

// Noise returns n samples of gaussian noise with the given standard
// deviation about offset.  rng may be nil for the shared source.
func Noise(n int, stdev, offset float64, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		if rng != nil {
			out[i] = offset + stdev*rng.NormFloat64()
		} else {
			out[i] = offset + stdev*rand.NormFloat64()
		}
	}
	return out
}

// DC returns n copies of level
func DC(n int, level float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	return out
}
