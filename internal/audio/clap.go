package audio

import "math"

// Clap renders multiple short noise bursts for a hand clap.
type Clap struct{}

var clapBursts = [...]float64{0, 0.011, 0.022}

func (Clap) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	n := newNoise()
	lp, hp := 0.0, 0.0
	return newRenderVoice(sampleRate, 0.3, func(i int) float64 {
		t := float64(i) / sr
		env := 0.0
		for _, b := range clapBursts {
			if t >= b {
				env += math.Exp(-(t - b) * 180)
			}
		}
		last := clapBursts[len(clapBursts)-1]
		if t >= last {
			env += 0.35 * math.Exp(-(t-last)*18)
		}
		// crude band-pass around 1-2 kHz
		w := n.next()
		lp += (w - lp) * 0.35
		band := lp - hp
		hp += (lp - hp) * 0.08
		return softSat(band * env * 1.2)
	})
}
