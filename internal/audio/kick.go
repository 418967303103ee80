package audio

import "math"

// Kick is a sine-based bass drum.
type Kick struct{}

// NewVoice returns a decaying sine with a downward pitch bend and a short
// click on the attack.
func (Kick) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	phase := 0.0
	return newRenderVoice(sampleRate, 0.5, func(i int) float64 {
		t := float64(i) / sr
		freq := 45 + 105*math.Exp(-t*25)
		phase += 2 * math.Pi * freq / sr
		body := math.Sin(phase) * math.Exp(-t*9)
		click := math.Sin(2*math.Pi*1800*t) * math.Exp(-t*300) * 0.2
		return softSat((body + click) * 1.1)
	})
}
