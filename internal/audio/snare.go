package audio

import "math"

// Snare mixes a two-partial drum body with high-passed noise.
type Snare struct{}

// NewVoice renders the body and the rattle for a quarter second.
func (Snare) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	n := newNoise()
	prev := 0.0
	return newRenderVoice(sampleRate, 0.25, func(i int) float64 {
		t := float64(i) / sr
		body := (math.Sin(2*math.Pi*185*t) + 0.5*math.Sin(2*math.Pi*330*t)) * math.Exp(-t*20) * 0.35
		w := n.next()
		hp := w - prev
		prev = w
		rattle := hp * math.Exp(-t*22) * 0.45
		return softSat(body + rattle)
	})
}
