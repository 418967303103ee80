package audio

import (
	"math"
	"time"
)

// HiHat renders a short, bright noise burst.
// It aims to mimic a closed hi-hat.
type HiHat struct{}

// OpenHat is the ringing variant; it never rings past two steps.
type OpenHat struct{}

func (HiHat) NewVoice(bpm, sampleRate int) Voice {
	return hatVoice(sampleRate, 0.06, 60)
}

func (OpenHat) NewVoice(bpm, sampleRate int) Voice {
	dur := 0.4
	if bpm > 0 {
		spb := 60 / float64(bpm)
		step := time.Duration(spb * 0.25 * float64(time.Second))
		if d := (2 * step).Seconds(); d < dur {
			dur = d
		}
	}
	return hatVoice(sampleRate, dur, 9)
}

func hatVoice(sampleRate int, dur, decay float64) Voice {
	sr := float64(sampleRate)
	n := newNoise()
	prev := 0.0
	return newRenderVoice(sampleRate, dur, func(i int) float64 {
		t := float64(i) / sr
		w := n.next()
		hp := w - prev
		prev = w
		metal := math.Sin(2*math.Pi*7300*t) + 0.6*math.Sin(2*math.Pi*9200*t)
		return (hp*0.7 + metal*0.1) * math.Exp(-t*decay) * 0.5
	})
}
