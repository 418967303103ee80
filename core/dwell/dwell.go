// Package dwell turns a resting pointer position into an evolving
// soundscape: a drone, a noise bed, random bell plucks and a few panned
// point sources.
package dwell

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// Pentatonic is the minor pentatonic scale over two octaves, in semitones.
var Pentatonic = []int{0, 3, 5, 7, 10, 12, 15, 17, 19, 22}

const (
	rootNote  = 45 // A2
	blockSize = 256
	maxPlucks = 16
)

type Config struct {
	SampleRate int
	Seed       int64
	Smoothing  time.Duration // time constant of the position glide
	Scale      []int
}

func (c *Config) defaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Smoothing <= 0 {
		c.Smoothing = 250 * time.Millisecond
	}
	if len(c.Scale) == 0 {
		c.Scale = Pentatonic
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Params are the smoothed values currently driving the layers.
type Params struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Root       float64 `json:"root_hz"`
	Brightness float64 `json:"brightness_hz"`
	DroneLevel float64 `json:"drone_level"`
	NoiseLevel float64 `json:"noise_level"`
	Density    float64 `json:"density"`
	Pan        float64 `json:"pan"`
	Running    bool    `json:"running"`
}

// Pluck is a random bell event.
type Pluck struct {
	Note int     `json:"note"`
	Pan  float64 `json:"pan"`
	Gain float64 `json:"gain"`
}

// Dwell is a never-ending stereo voice. SetPosition, Start, Stop and Params
// are safe to call from any goroutine; SampleStereo and Tick belong to the
// render thread.
type Dwell struct {
	cfg Config
	sr  float64

	tx, ty  atomic.Uint64
	running atomic.Bool

	mu   sync.Mutex
	snap Params

	rng     *rand.Rand
	coeff   float64
	x, y    float64
	gate    float64
	root    float64
	phases  [3]float64
	droneLP float64
	noiseLP float64
	noise   uint64
	wait    float64
	plucks  []*bell
	points  [3]pointSource
	n       int
}

type bell struct {
	freq, phase1, phase2 float64
	amp, decay           float64
	l, r                 float64
}

type pointSource struct {
	period, timer float64
	spread        float64
	freq, phase   float64
	amp           float64
}

// New creates a Dwell centred at (0.5, 0.5), stopped.
func New(cfg Config) *Dwell {
	cfg.defaults()
	d := &Dwell{
		cfg:   cfg,
		sr:    float64(cfg.SampleRate),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		noise: uint64(cfg.Seed) | 1,
	}
	d.coeff = utils.SmoothCoeff(cfg.Smoothing.Seconds(), d.sr/blockSize)
	d.SetPosition(0.5, 0.5)
	d.x, d.y = 0.5, 0.5
	d.root = d.targetRoot()
	for i := range d.points {
		d.points[i] = pointSource{
			period: 1.3 + 0.45*float64(i)*float64(i+1),
			spread: float64(i-1) * 0.35,
			freq:   utils.MidiToFreq(float64(rootNote + 36 + cfg.Scale[(i*2)%len(cfg.Scale)])),
		}
		d.points[i].timer = d.points[i].period * (0.3 + 0.3*float64(i))
	}
	d.wait = d.nextWait()
	d.publish()
	return d
}

// SetPosition moves the target; both axes are clamped to [0, 1].
func (d *Dwell) SetPosition(x, y float64) {
	d.tx.Store(math.Float64bits(utils.Clamp(x, 0, 1)))
	d.ty.Store(math.Float64bits(utils.Clamp(y, 0, 1)))
}

// Position returns the target position.
func (d *Dwell) Position() (float64, float64) {
	return math.Float64frombits(d.tx.Load()), math.Float64frombits(d.ty.Load())
}

// Start fades the soundscape in.
func (d *Dwell) Start() { d.running.Store(true) }

// Stop fades it out; the voice keeps running silently.
func (d *Dwell) Stop() { d.running.Store(false) }

func (d *Dwell) Running() bool { return d.running.Load() }

// Params returns the values as of the last rendered block. Running is
// always current.
func (d *Dwell) Params() Params {
	d.mu.Lock()
	p := d.snap
	d.mu.Unlock()
	p.Running = d.running.Load()
	return p
}

func (d *Dwell) publish() {
	p := Params{
		X:          d.x,
		Y:          d.y,
		Root:       d.root,
		Brightness: d.brightness(),
		DroneLevel: d.droneLevel(),
		NoiseLevel: d.noiseLevel(),
		Density:    d.density(),
		Pan:        d.x*2 - 1,
		Running:    d.running.Load(),
	}
	d.mu.Lock()
	d.snap = p
	d.mu.Unlock()
}

func (d *Dwell) scaleNote(i int) int {
	s := d.cfg.Scale
	return rootNote + s[utils.ClampInt(i, 0, len(s)-1)]
}

func (d *Dwell) targetRoot() float64 {
	tx, _ := d.Position()
	idx := int(tx * float64(len(d.cfg.Scale)))
	return utils.MidiToFreq(float64(d.scaleNote(idx)))
}

func (d *Dwell) brightness() float64 { return 150 + d.y*d.y*4000 }
func (d *Dwell) droneLevel() float64 { return 0.06 + 0.14*d.y }

func (d *Dwell) noiseLevel() float64 {
	dist := math.Hypot(d.x-0.5, d.y-0.5) / math.Sqrt2 * 2
	return 0.01 + 0.08*dist
}

// density is the mean number of plucks per second.
func (d *Dwell) density() float64 { return 0.15 + 4*d.x*d.y }

func (d *Dwell) nextWait() float64 {
	return d.rng.ExpFloat64() / d.density()
}

// Tick advances smoothing and the event generator by dt seconds and
// returns the plucks it spawned.
func (d *Dwell) Tick(dt float64) []Pluck {
	tx, ty := d.Position()
	steps := dt * d.sr / blockSize
	c := 1 - math.Pow(1-d.coeff, steps)
	d.x += (tx - d.x) * c
	d.y += (ty - d.y) * c
	d.root += (d.targetRoot() - d.root) * c

	g := 0.0
	if d.running.Load() {
		g = 1
	}
	d.gate += (g - d.gate) * c

	var out []Pluck
	d.wait -= dt
	for d.wait <= 0 {
		if d.gate > 0.01 {
			out = append(out, d.spawn())
		}
		d.wait += d.nextWait()
	}
	for i := range d.points {
		p := &d.points[i]
		p.timer -= dt
		if p.timer <= 0 {
			p.timer += p.period
			p.amp = 0.05 * d.gate
		}
	}
	d.publish()
	return out
}

func (d *Dwell) spawn() Pluck {
	note := d.scaleNote(d.rng.Intn(len(d.cfg.Scale))) + 24
	pan := d.rng.Float64()*1.6 - 0.8
	gain := (0.05 + 0.1*d.rng.Float64()) * d.gate
	l, r := utils.EqualPowerPan(pan)
	b := &bell{
		freq:  utils.MidiToFreq(float64(note)),
		amp:   gain,
		decay: math.Exp(-3.5 / d.sr),
		l:     l,
		r:     r,
	}
	if len(d.plucks) >= maxPlucks {
		d.plucks = d.plucks[1:]
	}
	d.plucks = append(d.plucks, b)
	return Pluck{Note: note, Pan: pan, Gain: gain}
}

func (d *Dwell) noiseSample() float64 {
	d.noise ^= d.noise << 13
	d.noise ^= d.noise >> 7
	d.noise ^= d.noise << 17
	return float64(d.noise>>11)/float64(1<<52) - 1
}

// Sample is the mono fold of SampleStereo.
func (d *Dwell) Sample() (float64, bool) {
	l, r, _ := d.SampleStereo()
	return (l + r) / 2, false
}

// SampleStereo renders one frame. It never finishes.
func (d *Dwell) SampleStereo() (float64, float64, bool) {
	if d.n == 0 {
		d.Tick(blockSize / d.sr)
	}
	d.n = (d.n + 1) % blockSize
	if d.gate < 1e-5 && len(d.plucks) == 0 {
		return 0, 0, false
	}

	// drone: detuned saw pair plus a sub sine, low-passed by brightness
	f := d.root
	var saw float64
	for i, det := range [2]float64{1, 1.004} {
		saw += 2*d.phases[i] - 1
		_, d.phases[i] = math.Modf(d.phases[i] + f*det/d.sr)
	}
	sub := math.Sin(2 * math.Pi * d.phases[2])
	_, d.phases[2] = math.Modf(d.phases[2] + f/2/d.sr)
	d.droneLP += (saw*0.5 - d.droneLP) * (1 - math.Exp(-2*math.Pi*d.brightness()/d.sr))
	drone := (d.droneLP + 0.4*sub) * d.droneLevel()

	cut := 300 + d.y*6000
	d.noiseLP += (d.noiseSample() - d.noiseLP) * (1 - math.Exp(-2*math.Pi*cut/d.sr))
	tex := d.noiseLP * d.noiseLevel()

	l := (drone + tex) * d.gate
	r := l

	kept := d.plucks[:0]
	for _, b := range d.plucks {
		s := (math.Sin(2*math.Pi*b.phase1) + 0.4*math.Sin(2*math.Pi*b.phase2)) * b.amp
		_, b.phase1 = math.Modf(b.phase1 + b.freq/d.sr)
		_, b.phase2 = math.Modf(b.phase2 + b.freq*2.76/d.sr)
		b.amp *= b.decay
		l += s * b.l
		r += s * b.r
		if b.amp > 1e-4 {
			kept = append(kept, b)
		}
	}
	d.plucks = kept

	pan := utils.Clamp(d.x*2-1, -1, 1)
	for i := range d.points {
		p := &d.points[i]
		if p.amp < 1e-5 {
			continue
		}
		s := math.Sin(2*math.Pi*p.phase) * p.amp
		_, p.phase = math.Modf(p.phase + p.freq/d.sr)
		p.amp *= 0.9997
		pl, pr := utils.EqualPowerPan(utils.Clamp(pan+p.spread, -1, 1))
		l += s * pl
		r += s * pr
	}
	return l, r, false
}
