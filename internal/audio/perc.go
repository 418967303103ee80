package audio

import "math"

// Rim is a very short two-partial click.
type Rim struct{}

// Cowbell stacks two detuned square partials through a decay.
type Cowbell struct{}

func (Rim) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	n := newNoise()
	return newRenderVoice(sampleRate, 0.06, func(i int) float64 {
		t := float64(i) / sr
		tone := math.Sin(2*math.Pi*1700*t) + 0.7*math.Sin(2*math.Pi*520*t)
		return (tone*0.4 + n.next()*0.2) * math.Exp(-t*90)
	})
}

func (Cowbell) NewVoice(bpm, sampleRate int) Voice {
	sr := float64(sampleRate)
	lp := 0.0
	return newRenderVoice(sampleRate, 0.3, func(i int) float64 {
		t := float64(i) / sr
		sq := square(540*t) + square(800*t)
		lp += (sq - lp) * 0.25
		return lp * math.Exp(-t*12) * 0.18
	})
}

func square(phase float64) float64 {
	_, f := math.Modf(phase)
	if f < 0.5 {
		return 1
	}
	return -1
}
