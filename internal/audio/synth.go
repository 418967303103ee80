package audio

import (
	"fmt"
	"math"
	"strings"

	"github.com/ingyamilmolinar/mk1/internal/utils"
)

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSaw
	WaveTriangle
)

var waveNames = []string{"sine", "square", "saw", "triangle"}

func (w Waveform) String() string {
	if int(w) < len(waveNames) && w >= 0 {
		return waveNames[w]
	}
	return "unknown"
}

// ParseWaveform accepts a waveform name or its index.
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range waveNames {
		if n == s || fmt.Sprint(i) == s {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}

func oscillate(w Waveform, phase float64) float64 {
	switch w {
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		return 2*phase - 1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// SynthParams are the knobs of the monophonic synth.
type SynthParams struct {
	Wave    Waveform
	Attack  float64 // seconds
	Decay   float64
	Sustain float64 // 0..1
	Release float64
	Glide   float64 // seconds
	Cutoff  float64 // Hz
	Detune  float64 // cents for the second oscillator
	Octave  int
}

func DefaultSynthParams() SynthParams {
	return SynthParams{
		Wave:    WaveSaw,
		Attack:  0.01,
		Decay:   0.2,
		Sustain: 0.6,
		Release: 0.3,
		Glide:   0,
		Cutoff:  2400,
		Detune:  7,
	}
}

var synthParamNames = []string{"wave", "attack", "decay", "sustain", "release", "glide", "cutoff", "detune", "octave"}

// Set updates one parameter by name, clamping to its range.
func (p *SynthParams) Set(name string, v float64) error {
	if !utils.Finite(v) {
		return fmt.Errorf("synth %q = %v: %w", name, v, ErrBadValue)
	}
	switch name {
	case "wave":
		p.Wave = Waveform(utils.ClampInt(int(v), 0, len(waveNames)-1))
	case "attack":
		p.Attack = utils.Clamp(v, 0.001, 5)
	case "decay":
		p.Decay = utils.Clamp(v, 0.001, 5)
	case "sustain":
		p.Sustain = utils.Clamp(v, 0, 1)
	case "release":
		p.Release = utils.Clamp(v, 0.001, 10)
	case "glide":
		p.Glide = utils.Clamp(v, 0, 2)
	case "cutoff":
		p.Cutoff = utils.Clamp(v, 40, 18000)
	case "detune":
		p.Detune = utils.Clamp(v, 0, 100)
	case "octave":
		p.Octave = utils.ClampInt(int(v), -3, 3)
	default:
		return fmt.Errorf("synth %q: %w", name, ErrUnknownParam)
	}
	return nil
}

// Get reads a parameter by name.
func (p SynthParams) Get(name string) (float64, error) {
	switch name {
	case "wave":
		return float64(p.Wave), nil
	case "attack":
		return p.Attack, nil
	case "decay":
		return p.Decay, nil
	case "sustain":
		return p.Sustain, nil
	case "release":
		return p.Release, nil
	case "glide":
		return p.Glide, nil
	case "cutoff":
		return p.Cutoff, nil
	case "detune":
		return p.Detune, nil
	case "octave":
		return float64(p.Octave), nil
	}
	return 0, fmt.Errorf("synth %q: %w", name, ErrUnknownParam)
}

// Map returns every parameter keyed by name.
func (p SynthParams) Map() map[string]float64 {
	m := make(map[string]float64, len(synthParamNames))
	for _, n := range synthParamNames {
		m[n], _ = p.Get(n)
	}
	return m
}

// Synth is a monophonic keyboard: at most one voice sounds, a new note
// retriggers it with last-note priority. Not safe for concurrent use; the
// Engine serialises access.
type Synth struct {
	sampleRate int
	params     SynthParams
	active     *synthVoice
	gen        uint64
}

func NewSynth(sampleRate int) *Synth {
	return &Synth{sampleRate: sampleRate, params: DefaultSynthParams()}
}

func (s *Synth) Params() SynthParams { return s.params }

func (s *Synth) SetParam(name string, v float64) error { return s.params.Set(name, v) }

// NoteOn returns a voice the caller must schedule, or nil when the running
// voice was retriggered instead.
func (s *Synth) NoteOn(note int, vel float64) Voice {
	freq := utils.MidiToFreq(float64(note + 12*s.params.Octave))
	vel = utils.Clamp(vel, 0, 1)
	s.gen++
	if v := s.active; v != nil && !v.finished {
		v.retrigger(note, freq, vel, s.params)
		return nil
	}
	v := newSynthVoice(s.sampleRate, note, freq, vel, s.params)
	s.active = v
	return v
}

// NoteOff releases the voice if note is the one currently sounding.
func (s *Synth) NoteOff(note int) {
	if v := s.active; v != nil && v.note == note {
		v.env.Stop()
	}
}

// Gen counts note-ons; a release scheduled for one note-on can check it
// still owns the voice.
func (s *Synth) Gen() uint64 { return s.gen }

// ReleaseIf releases note only if no note-on happened since gen.
func (s *Synth) ReleaseIf(note int, gen uint64) {
	if s.gen == gen {
		s.NoteOff(note)
	}
}

// Current reports the sounding note.
func (s *Synth) Current() (int, bool) {
	if v := s.active; v != nil && !v.finished && v.env.Gated() {
		return v.note, true
	}
	return 0, false
}

type synthVoice struct {
	sr       float64
	note     int
	freq     float64
	target   float64
	glide    float64
	vel      float64
	wave     Waveform
	detune   float64
	lpCoeff  float64
	lp       float64
	phase1   float64
	phase2   float64
	env      Envelope
	finished bool
}

func newSynthVoice(sampleRate, note int, freq, vel float64, p SynthParams) *synthVoice {
	v := &synthVoice{
		sr:     float64(sampleRate),
		note:   note,
		freq:   freq,
		target: freq,
		vel:    vel,
	}
	v.apply(p)
	v.env.Start()
	return v
}

func (v *synthVoice) apply(p SynthParams) {
	v.wave = p.Wave
	v.detune = math.Pow(2, p.Detune/1200)
	v.glide = utils.SmoothCoeff(p.Glide/3, v.sr)
	v.lpCoeff = 1 - math.Exp(-2*math.Pi*p.Cutoff/v.sr)
	v.env = Envelope{
		Attack:  int64(p.Attack * v.sr),
		Decay:   int64(p.Decay * v.sr),
		Sustain: p.Sustain,
		Release: int64(p.Release * v.sr),
		level:   v.env.level,
		from:    v.env.from,
		t:       v.env.t,
		gate:    v.env.gate,
		started: v.env.started,
	}
}

func (v *synthVoice) retrigger(note int, freq, vel float64, p SynthParams) {
	v.note = note
	v.target = freq
	if p.Glide <= 0 {
		v.freq = freq
	}
	v.vel = vel
	v.apply(p)
	v.env.Restart()
}

func (v *synthVoice) Sample() (float64, bool) {
	if v.finished {
		return 0, true
	}
	env, done := v.env.Next()
	if done {
		v.finished = true
		return 0, true
	}
	v.freq += (v.target - v.freq) * v.glide
	s := oscillate(v.wave, v.phase1) + 0.5*oscillate(v.wave, v.phase2)
	_, v.phase1 = math.Modf(v.phase1 + v.freq/v.sr)
	_, v.phase2 = math.Modf(v.phase2 + v.freq*v.detune/v.sr)
	v.lp += (s - v.lp) * v.lpCoeff
	return v.lp * env * v.vel * 0.35, false
}
