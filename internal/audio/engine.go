package audio

import (
	"container/heap"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/utils"
)

const (
	DefaultSampleRate = 44100
	Channels          = 2
	DefaultMaxVoices  = 64
	DefaultBPM        = 120
)

// Drums lists the built-in drum pads in sequencer track order.
var Drums = []string{"kick", "snare", "hihat", "openhat", "clap", "tom", "rim", "cowbell"}

// Tap receives interleaved stereo frames after the master stage.
// It is called on the render thread and must not call back into the Engine.
type Tap func(frames []float32)

// Config controls an Engine.
type Config struct {
	SampleRate int
	MaxVoices  int
	Logger     *log.Logger
}

// Engine owns the instrument registry, the synth, the mixer and the effects
// graph. All rendering and control happens under a single lock.
type Engine struct {
	mu  sync.Mutex
	log *log.Logger

	sr        int
	bpm       int
	maxVoices int

	graph *Graph
	synth *Synth

	instruments map[string]Instrument
	order       []string

	voices  []*voiceState
	sources map[int]StereoVoice
	queue   actionQueue
	seq     uint64

	taps    map[int]Tap
	tapIDs  []int
	nextID  int
	pos     atomic.Int64
	scratch []float32
}

type voiceState struct {
	start int64
	v     Voice
	gain  float64
}

// New creates an engine with the built-in instruments registered.
func New(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = DefaultMaxVoices
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	e := &Engine{
		log:       cfg.Logger.With("audio"),
		sr:        cfg.SampleRate,
		bpm:       DefaultBPM,
		maxVoices: cfg.MaxVoices,
		graph:     NewGraph(cfg.SampleRate),
		synth:     NewSynth(cfg.SampleRate),
		sources:   map[int]StereoVoice{},
		taps:      map[int]Tap{},
	}
	e.ResetInstruments()
	return e
}

func (e *Engine) SampleRate() int { return e.sr }

// Register makes an instrument available for playback by ID.
func (e *Engine) Register(id string, inst Instrument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.instruments[id]; !exists {
		e.order = append(e.order, id)
	}
	e.instruments[id] = inst
}

// ResetInstruments restores the built-in instrument set.
func (e *Engine) ResetInstruments() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instruments = map[string]Instrument{
		"kick":    Kick{},
		"snare":   Snare{},
		"hihat":   HiHat{},
		"openhat": OpenHat{},
		"clap":    Clap{},
		"tom":     Tom{},
		"rim":     Rim{},
		"cowbell": Cowbell{},
	}
	e.order = append([]string(nil), Drums...)
}

// Instruments returns the registered instrument IDs in registration order.
func (e *Engine) Instruments() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Has reports whether id is registered.
func (e *Engine) Has(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.instruments[id]
	return ok
}

// Now returns the audio clock in seconds: frames rendered / sample rate.
func (e *Engine) Now() float64 {
	return float64(e.pos.Load()) / float64(e.sr)
}

// SetBPM updates the tempo used when constructing tempo-aware voices.
func (e *Engine) SetBPM(b int) {
	e.mu.Lock()
	e.bpm = b
	e.mu.Unlock()
}

// Play schedules instrument id at velocity vel (0..1) at clock time when.
// Times in the past, including zero, play immediately.
func (e *Engine) Play(id string, vel, when float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.instruments[id]
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrUnknownInstrument)
	}
	e.scheduleLocked(inst.NewVoice(e.bpm, e.sr), utils.Clamp(vel, 0, 1), e.frameAt(when))
	return nil
}

func (e *Engine) frameAt(when float64) int64 {
	now := e.pos.Load()
	if !utils.Finite(when) {
		return now
	}
	at := int64(math.Round(when * float64(e.sr)))
	if at < now {
		return now
	}
	return at
}

func (e *Engine) scheduleLocked(v Voice, gain float64, start int64) {
	if len(e.voices) >= e.maxVoices {
		drop := len(e.voices) - e.maxVoices + 1
		e.log.Debugf("voice limit reached, dropping %d", drop)
		for _, vs := range e.voices[:drop] {
			if sv, ok := vs.v.(*synthVoice); ok {
				sv.finished = true
			}
		}
		e.voices = append(e.voices[:0], e.voices[drop:]...)
	}
	e.voices = append(e.voices, &voiceState{start: start, v: v, gain: gain})
}

func (e *Engine) atLocked(frame int64, fn func()) {
	e.seq++
	heap.Push(&e.queue, timedAction{at: frame, seq: e.seq, fn: fn})
}

// NoteOn starts or retriggers the mono synth.
func (e *Engine) NoteOn(note int, vel float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v := e.synth.NoteOn(note, vel); v != nil {
		e.scheduleLocked(v, 1, e.pos.Load())
	}
}

// NoteOff releases note if it is the one sounding.
func (e *Engine) NoteOff(note int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synth.NoteOff(note)
}

// PlayNote plays note for dur seconds.
func (e *Engine) PlayNote(note int, vel, dur float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v := e.synth.NoteOn(note, vel); v != nil {
		e.scheduleLocked(v, 1, e.pos.Load())
	}
	gen := e.synth.Gen()
	if !utils.Finite(dur) || dur < 0 {
		dur = 0
	}
	off := e.pos.Load() + int64(dur*float64(e.sr))
	e.atLocked(off, func() { e.synth.ReleaseIf(note, gen) })
}

// SetSynthParam changes a synth parameter; it applies from the next note.
func (e *Engine) SetSynthParam(name string, v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synth.SetParam(name, v)
}

// SynthParams returns the synth settings.
func (e *Engine) SynthParams() SynthParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synth.Params()
}

// SetParam sets a mix control of the effects graph.
func (e *Engine) SetParam(name string, v float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.SetParam(name, v)
}

// Param returns a mix control's target value.
func (e *Engine) Param(name string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Param(name)
}

func (e *Engine) Params() []ParamInfo { return e.graph.Params() }

// Snapshot returns every mix control.
func (e *Engine) Snapshot() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// Apply sets several mix controls.
func (e *Engine) Apply(values map[string]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Apply(values)
}

// AddSource attaches a never-ending stereo voice that bypasses the voice
// limit. It is mixed until RemoveSource is called or it reports done.
func (e *Engine) AddSource(v StereoVoice) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.sources[e.nextID] = v
	return e.nextID
}

func (e *Engine) RemoveSource(id int) {
	e.mu.Lock()
	delete(e.sources, id)
	e.mu.Unlock()
}

// AddTap registers t and returns its handle.
func (e *Engine) AddTap(t Tap) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.taps[e.nextID] = t
	e.tapIDs = append(e.tapIDs, e.nextID)
	return e.nextID
}

func (e *Engine) RemoveTap(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.taps, id)
	for i, t := range e.tapIDs {
		if t == id {
			e.tapIDs = append(e.tapIDs[:i], e.tapIDs[i+1:]...)
			break
		}
	}
}

// Voices reports how many one-shot voices are queued or sounding.
func (e *Engine) Voices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// Reset drops queued and sounding voices and clears the effect tails.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices = nil
	e.queue = nil
	e.synth.active = nil
	e.graph.Reset()
}

// Render fills out with interleaved stereo frames and advances the clock.
func (e *Engine) Render(out []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderLocked(out)
}

func (e *Engine) renderLocked(out []float32) {
	frames := len(out) / Channels
	pos := e.pos.Load()
	for f := 0; f < frames; f++ {
		e.queue.flush(pos)
		var l, r float64
		for idx := 0; idx < len(e.voices); idx++ {
			vs := e.voices[idx]
			if pos < vs.start {
				continue
			}
			var sl, sr float64
			var done bool
			if sv, ok := vs.v.(StereoVoice); ok {
				sl, sr, done = sv.SampleStereo()
			} else {
				sl, done = vs.v.Sample()
				sr = sl
			}
			l += sl * vs.gain
			r += sr * vs.gain
			if done {
				e.voices = append(e.voices[:idx], e.voices[idx+1:]...)
				idx--
			}
		}
		for id, src := range e.sources {
			sl, sr, done := src.SampleStereo()
			l += sl
			r += sr
			if done {
				delete(e.sources, id)
			}
		}
		l, r = e.graph.Process(l, r)
		out[2*f] = float32(l)
		out[2*f+1] = float32(r)
		pos++
	}
	e.pos.Store(pos)
	for _, id := range e.tapIDs {
		e.taps[id](out[:frames*Channels])
	}
}

// Read implements io.Reader for oto.Player: interleaved stereo int16 LE.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / (2 * Channels)
	n := frames * Channels
	e.mu.Lock()
	if cap(e.scratch) < n {
		e.scratch = make([]float32, n)
	}
	buf := e.scratch[:n]
	e.renderLocked(buf)
	e.mu.Unlock()
	for i, s := range buf {
		v := int16(utils.Clamp(float64(s), -1, 1) * 32767)
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
	}
	return n * 2, nil
}
