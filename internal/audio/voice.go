package audio

import (
	"math"
	"sync/atomic"
)

// Voice generates PCM samples in the range [-1,1].
type Voice interface {
	// Sample returns the next sample and whether the voice has finished.
	Sample() (float64, bool)
}

// StereoVoice is implemented by voices that render their own stereo image
// (samples, panned point sources). The mixer prefers it over Sample.
type StereoVoice interface {
	Voice
	SampleStereo() (l, r float64, done bool)
}

// Instrument constructs a new Voice instance when triggered.
type Instrument interface {
	NewVoice(bpm, sampleRate int) Voice
}

// InstrumentFunc adapts a plain constructor to Instrument.
type InstrumentFunc func(bpm, sampleRate int) Voice

func (f InstrumentFunc) NewVoice(bpm, sampleRate int) Voice { return f(bpm, sampleRate) }

// renderVoice runs a per-sample generator for a fixed number of samples.
type renderVoice struct {
	i, n int
	next func(i int) float64
}

func (v *renderVoice) Sample() (float64, bool) {
	if v.i >= v.n {
		return 0, true
	}
	s := v.next(v.i)
	v.i++
	return s, false
}

func newRenderVoice(sampleRate int, seconds float64, next func(i int) float64) *renderVoice {
	return &renderVoice{n: int(float64(sampleRate) * seconds), next: next}
}

// noise is a tiny LCG white-noise source; deterministic per seed.
type noise uint64

func (n *noise) next() float64 {
	*n = *n*6364136223846793005 + 1442695040888963407
	return float64(int64(uint64(*n)>>33)-int64(1<<30)) / float64(1<<30)
}

var noiseSeed atomic.Uint64

func newNoise() *noise {
	n := noise(noiseSeed.Add(0x9E3779B97F4A7C15))
	return &n
}

// softSat applies gentle saturation keeping the output inside [-1, 1].
func softSat(x float64) float64 { return math.Tanh(x) }
