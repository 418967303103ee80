package utils

import "math"

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// MidiToFreq converts a MIDI note number to Hz (A4 = 69 = 440 Hz).
func MidiToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// SmoothCoeff returns the one-pole coefficient that reaches ~63% of a step
// change after tau seconds at the given sample rate.
func SmoothCoeff(tau float64, sampleRate float64) float64 {
	if tau <= 0 || sampleRate <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(tau*sampleRate))
}

// EqualPowerPan returns left/right gains for pan in [-1, 1].
func EqualPowerPan(pan float64) (float64, float64) {
	p := (Clamp(pan, -1, 1) + 1) / 2
	return math.Sqrt(1 - p), math.Sqrt(p)
}
