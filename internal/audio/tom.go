package audio

import "math"

// Tom renders a pitched drum tone with a slight noise attack.
type Tom struct{}

func (Tom) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	n := newNoise()
	phase := 0.0
	return newRenderVoice(sampleRate, 0.4, func(i int) float64 {
		t := float64(i) / sr
		freq := 110 + 60*math.Exp(-t*18)
		phase += 2 * math.Pi * freq / sr
		body := math.Sin(phase) * math.Exp(-t*8) * 0.8
		attack := n.next() * math.Exp(-t*120) * 0.15
		return softSat(body + attack)
	})
}
