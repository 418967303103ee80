package audio

import (
	"math"
)

// distortion is a normalised tanh waveshaper; amount 0 bypasses it.
func distortion(x, amount float64) float64 {
	if amount < 1e-4 {
		return x
	}
	k := 1 + amount*24
	return math.Tanh(k*x) / math.Tanh(k)
}

// crusher reduces bit depth and holds samples for rate frames.
type crusher struct {
	hold    int
	heldL   float64
	heldR   float64
	counter int
}

func (c *crusher) process(l, r, bits, rate float64) (float64, float64) {
	c.hold = int(math.Round(rate))
	if c.hold > 1 {
		if c.counter == 0 {
			c.heldL, c.heldR = l, r
		}
		c.counter++
		if c.counter >= c.hold {
			c.counter = 0
		}
		l, r = c.heldL, c.heldR
	} else {
		c.counter = 0
	}
	if bits < 15.99 {
		steps := math.Pow(2, bits-1)
		l = math.Round(l*steps) / steps
		r = math.Round(r*steps) / steps
	}
	return l, r
}

func (c *crusher) reset() { *c = crusher{} }

// biquad is an RBJ cookbook low-pass, one state per channel.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	cutoff, q          float64
	x1, x2, y1, y2     [2]float64
}

func (b *biquad) design(sampleRate, cutoff, q float64) {
	if cutoff == b.cutoff && q == b.q {
		return
	}
	b.cutoff, b.q = cutoff, q
	fc := math.Min(cutoff, sampleRate*0.45)
	w0 := 2 * math.Pi * fc / sampleRate
	cos := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	b.b0 = (1 - cos) / 2 / a0
	b.b1 = (1 - cos) / a0
	b.b2 = b.b0
	b.a1 = -2 * cos / a0
	b.a2 = (1 - alpha) / a0
}

func (b *biquad) process(ch int, x float64) float64 {
	y := b.b0*x + b.b1*b.x1[ch] + b.b2*b.x2[ch] - b.a1*b.y1[ch] - b.a2*b.y2[ch]
	b.x2[ch], b.x1[ch] = b.x1[ch], x
	b.y2[ch], b.y1[ch] = b.y1[ch], y
	return y
}

func (b *biquad) reset() {
	b.x1, b.x2, b.y1, b.y2 = [2]float64{}, [2]float64{}, [2]float64{}, [2]float64{}
}

// delayLine is a circular buffer read with linear interpolation.
type delayLine struct {
	buf []float64
	pos int
}

func newDelayLine(n int) delayLine { return delayLine{buf: make([]float64, n)} }

func (d *delayLine) write(x float64) {
	d.buf[d.pos] = x
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

// read returns the sample written delay samples ago (before the next write).
func (d *delayLine) read(delay float64) float64 {
	n := len(d.buf)
	if delay < 1 {
		delay = 1
	}
	if delay > float64(n-1) {
		delay = float64(n - 1)
	}
	i := int(delay)
	frac := delay - float64(i)
	a := d.buf[(d.pos-i+n)%n]
	b := d.buf[(d.pos-i-1+n)%n]
	return a + (b-a)*frac
}

func (d *delayLine) reset() {
	clear(d.buf)
	d.pos = 0
}

// chorus modulates a short delay per channel with quadrature LFOs.
type chorus struct {
	sr    float64
	lines [2]delayLine
	phase float64
}

func newChorus(sampleRate float64) *chorus {
	n := int(sampleRate*0.05) + 2
	return &chorus{sr: sampleRate, lines: [2]delayLine{newDelayLine(n), newDelayLine(n)}}
}

func (c *chorus) process(l, r, mix, rate, depth float64) (float64, float64) {
	c.phase += rate / c.sr
	if c.phase >= 1 {
		c.phase--
	}
	base := 0.015 * c.sr
	span := 0.008 * c.sr * depth
	dl := base + span*math.Sin(2*math.Pi*c.phase)
	dr := base + span*math.Cos(2*math.Pi*c.phase)
	c.lines[0].write(l)
	c.lines[1].write(r)
	if mix < 1e-4 {
		return l, r
	}
	wl := c.lines[0].read(dl)
	wr := c.lines[1].read(dr)
	return l*(1-mix*0.5) + wl*mix*0.7, r*(1-mix*0.5) + wr*mix*0.7
}

func (c *chorus) reset() {
	c.lines[0].reset()
	c.lines[1].reset()
	c.phase = 0
}

// feedbackDelay is a stereo echo with a gentle low-pass in the loop.
type feedbackDelay struct {
	sr    float64
	lines [2]delayLine
	tone  [2]float64
}

func newFeedbackDelay(sampleRate, maxSeconds float64) *feedbackDelay {
	n := int(sampleRate*maxSeconds) + 2
	return &feedbackDelay{sr: sampleRate, lines: [2]delayLine{newDelayLine(n), newDelayLine(n)}}
}

func (d *feedbackDelay) process(l, r, seconds, feedback float64) (float64, float64) {
	delay := seconds * d.sr
	out := [2]float64{d.lines[0].read(delay), d.lines[1].read(delay)}
	in := [2]float64{l, r}
	for ch := range 2 {
		d.tone[ch] += (out[ch] - d.tone[ch]) * 0.6
		d.lines[ch].write(in[ch] + d.tone[ch]*feedback)
	}
	return out[0], out[1]
}

func (d *feedbackDelay) reset() {
	d.lines[0].reset()
	d.lines[1].reset()
	d.tone = [2]float64{}
}

type comb struct {
	buf   []float64
	pos   int
	store float64
}

func (c *comb) process(x, feedback, damp float64) float64 {
	y := c.buf[c.pos]
	c.store = y*(1-damp) + c.store*damp
	c.buf[c.pos] = x + c.store*feedback
	c.pos++
	if c.pos == len(c.buf) {
		c.pos = 0
	}
	return y
}

type allpass struct {
	buf []float64
	pos int
}

func (a *allpass) process(x float64) float64 {
	b := a.buf[a.pos]
	a.buf[a.pos] = x + b*0.5
	a.pos++
	if a.pos == len(a.buf) {
		a.pos = 0
	}
	return b - x
}

var (
	combTunings    = []int{1116, 1188, 1277, 1356}
	allpassTunings = []int{556, 441}
)

const reverbSpread = 23

// reverb is a reduced Schroeder/Moorer network: parallel damped combs into
// series allpasses, with a wider right channel.
type reverb struct {
	combs  [2][]comb
	passes [2][]allpass
}

func newReverb(sampleRate float64) *reverb {
	scale := sampleRate / 44100
	rv := &reverb{}
	for ch := range 2 {
		spread := ch * reverbSpread
		for _, n := range combTunings {
			rv.combs[ch] = append(rv.combs[ch], comb{buf: make([]float64, int(float64(n+spread)*scale))})
		}
		for _, n := range allpassTunings {
			rv.passes[ch] = append(rv.passes[ch], allpass{buf: make([]float64, int(float64(n+spread)*scale))})
		}
	}
	return rv
}

func (rv *reverb) process(l, r, size, damp float64) (float64, float64) {
	feedback := 0.7 + size*0.28
	if feedback > 0.98 {
		feedback = 0.98
	}
	in := (l + r) * 0.015
	var out [2]float64
	for ch := range 2 {
		var s float64
		for i := range rv.combs[ch] {
			s += rv.combs[ch][i].process(in, feedback, damp)
		}
		for i := range rv.passes[ch] {
			s = rv.passes[ch][i].process(s)
		}
		out[ch] = s
	}
	return out[0], out[1]
}

func (rv *reverb) reset() {
	for ch := range 2 {
		for i := range rv.combs[ch] {
			clear(rv.combs[ch][i].buf)
			rv.combs[ch][i].store = 0
		}
		for i := range rv.passes[ch] {
			clear(rv.passes[ch][i].buf)
		}
	}
}

// limit is the final soft limiter; its output never leaves [-1, 1].
func limit(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Tanh(x)
}
