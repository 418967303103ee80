package mk1

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ingyamilmolinar/mk1/core/dwell"
	"github.com/ingyamilmolinar/mk1/core/engine"
	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/core/model"
	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/preset"
	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// Config wires a Controller.
type Config struct {
	Audio    *audio.Engine
	Presets  *preset.Store
	Quantize bool
	// MaxCapture bounds the raw audio kept per loop take.
	MaxCapture time.Duration
	RateLimit  float64 // commands per second, 0 disables limiting
	Burst      int
	DwellSeed  int64
	Now        func() time.Time
	Logger     *log.Logger
}

// Controller is the single command surface over the audio core.
type Controller struct {
	audio   *audio.Engine
	seq     *engine.Sequencer
	loop    *looper.Looper
	dwell   *dwell.Dwell
	presets *preset.Store
	limiter *rate.Limiter
	now     func() time.Time
	log     *log.Logger

	mu      sync.Mutex
	held    map[int]heldNote
	preset  string
	dwellID int
}

type heldNote struct {
	at  time.Time
	vel float64
}

// New builds the sequencer, looper and dwell layer around cfg.Audio.
func New(cfg Config) *Controller {
	if cfg.Audio == nil {
		cfg.Audio = audio.New(audio.Config{Logger: cfg.Logger})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	c := &Controller{
		audio:   cfg.Audio,
		presets: cfg.Presets,
		now:     cfg.Now,
		log:     cfg.Logger.With("mk1"),
		held:    map[int]heldNote{},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	c.seq = engine.New(model.NewPattern(), c.seqTrigger, cfg.Logger)
	c.loop = looper.New(looper.Config{
		Now:        cfg.Now,
		BPM:        c.seq.BPM,
		Quantize:   cfg.Quantize,
		MaxCapture: cfg.MaxCapture,
		SampleRate: cfg.Audio.SampleRate(),
		Logger:     cfg.Logger,
	}, c, cfg.Audio)
	c.dwell = dwell.New(dwell.Config{SampleRate: cfg.Audio.SampleRate(), Seed: cfg.DwellSeed})
	c.dwellID = cfg.Audio.AddSource(c.dwell)
	return c
}

func (c *Controller) Audio() *audio.Engine         { return c.audio }
func (c *Controller) Sequencer() *engine.Sequencer { return c.seq }
func (c *Controller) Looper() *looper.Looper       { return c.loop }
func (c *Controller) DwellLayer() *dwell.Dwell     { return c.dwell }
func (c *Controller) Presets() *preset.Store       { return c.presets }

// Run drives the looper clock until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.loop.Run(ctx)
	return nil
}

// Close stops the sequencer loop and detaches the dwell layer.
func (c *Controller) Close() {
	c.seq.Close()
	c.audio.RemoveSource(c.dwellID)
}

func (c *Controller) seqTrigger(track int, vel float64) {
	if track >= len(audio.Drums) {
		return
	}
	_ = c.trigger(looper.Event{Kind: looper.KindDrum, ID: audio.Drums[track], Velocity: vel, Source: looper.SourceSequencer})
}

// Replay sounds an event played back by the looper.
func (c *Controller) Replay(ev looper.Event) {
	if err := c.trigger(ev); err != nil {
		c.log.Debugf("replay %s: %v", ev.ID, err)
	}
}

// trigger sounds ev now and offers it to the looper.
func (c *Controller) trigger(ev looper.Event) error {
	switch ev.Kind {
	case looper.KindDrum:
		if err := c.audio.Play(ev.ID, ev.Velocity, 0); err != nil {
			return err
		}
	case looper.KindNote:
		c.audio.PlayNote(ev.Note, ev.Velocity, ev.Duration.Seconds())
	default:
		return fmt.Errorf("event kind %q: %w", ev.Kind, ErrBadArgs)
	}
	c.loop.Log(ev)
	return nil
}

// Drum plays a drum pad.
func (c *Controller) Drum(id string, vel float64) error {
	return c.DrumFrom(looper.SourceLive, id, vel)
}

// DrumFrom is Drum with an explicit source tag.
func (c *Controller) DrumFrom(source, id string, vel float64) error {
	return cmdErr("drum", c.trigger(looper.Event{Kind: looper.KindDrum, ID: id, Velocity: vel, Source: source}))
}

// Note plays a synth note for dur seconds.
func (c *Controller) Note(note int, vel, dur float64) error {
	return c.NoteFrom(looper.SourceLive, note, vel, dur)
}

func (c *Controller) NoteFrom(source string, note int, vel, dur float64) error {
	if note < 0 || note > 127 || !(dur > 0) || math.IsInf(dur, 0) {
		return cmdErr("note", fmt.Errorf("note %d for %.3fs: %w", note, dur, ErrBadArgs))
	}
	return cmdErr("note", c.trigger(looper.Event{
		Kind: looper.KindNote, Note: note, Velocity: vel,
		Duration: time.Duration(dur * float64(time.Second)), Source: source,
	}))
}

// NoteOn holds a synth note until NoteOff. The looper records it on
// release with the held duration.
func (c *Controller) NoteOn(note int, vel float64) error {
	if note < 0 || note > 127 {
		return cmdErr("note_on", fmt.Errorf("note %d: %w", note, ErrBadArgs))
	}
	vel = utils.Clamp(vel, 0, 1)
	c.mu.Lock()
	c.held[note] = heldNote{at: c.now(), vel: vel}
	c.mu.Unlock()
	c.audio.NoteOn(note, vel)
	return nil
}

func (c *Controller) NoteOff(note int) error {
	return c.NoteOffFrom(looper.SourceLive, note)
}

// NoteOffFrom releases note and logs it to the looper at its start time
// with the velocity it was struck at.
func (c *Controller) NoteOffFrom(source string, note int) error {
	c.audio.NoteOff(note)
	c.mu.Lock()
	on, ok := c.held[note]
	delete(c.held, note)
	c.mu.Unlock()
	if ok {
		c.loop.LogAt(looper.Event{
			Kind: looper.KindNote, Note: note, Velocity: on.vel,
			Duration: c.now().Sub(on.at), Source: source,
		}, on.at)
	}
	return nil
}

func (c *Controller) SeqStart()       { c.seq.Start() }
func (c *Controller) SeqStop()        { c.seq.Stop() }
func (c *Controller) SeqToggle() bool { return c.seq.Toggle() }

// SetBPM sets the tempo of the sequencer and of tempo-aware voices.
func (c *Controller) SetBPM(bpm int) int {
	applied := c.seq.SetBPM(bpm)
	c.audio.SetBPM(applied)
	return applied
}

func (c *Controller) SetSwing(v float64) { c.seq.SetSwing(v) }

// SetQuantize turns bar rounding of new loop takes on or off.
func (c *Controller) SetQuantize(on bool) { c.loop.SetQuantize(on) }

// ToggleStep flips one pattern cell and reports its new state.
func (c *Controller) ToggleStep(track, step int) (bool, error) {
	on, err := c.seq.Pattern.Toggle(track, step)
	return on, cmdErr("step", err)
}

func (c *Controller) ClearPattern() { c.seq.Pattern.Clear() }

func (c *Controller) SetTrackVolume(track int, v float64) error {
	return cmdErr("volume", c.seq.Pattern.SetVolume(track, v))
}

func (c *Controller) SetMute(track int, muted bool) error {
	return cmdErr("mute", c.seq.Pattern.SetMute(track, muted))
}

// FX sets a mix control.
func (c *Controller) FX(name string, v float64) error {
	return cmdErr("fx", c.audio.SetParam(name, v))
}

// Synth sets a synth parameter.
func (c *Controller) Synth(name string, v float64) error {
	return cmdErr("synth", c.audio.SetSynthParam(name, v))
}

// Loop runs a looper action on slot: rec, overdub, stop, play, clear, undo.
// Slot "all" only accepts clear.
func (c *Controller) Loop(slot, action string) error {
	if s := strings.ToLower(slot); s == "all" || s == "*" {
		if strings.ToLower(action) != "clear" {
			return cmdErr("loop", fmt.Errorf("loop all %q: %w", action, ErrBadArgs))
		}
		c.loop.ClearAll()
		return nil
	}
	i, err := looper.ParseSlot(slot)
	if err != nil {
		return cmdErr("loop", err)
	}
	switch strings.ToLower(action) {
	case "rec", "record", "overdub":
		err = c.loop.Record(i)
	case "stop":
		err = c.loop.Stop(i)
	case "play":
		err = c.loop.Play(i)
	case "clear":
		err = c.loop.Clear(i)
	case "undo":
		err = c.loop.Undo(i)
	default:
		err = fmt.Errorf("loop action %q: %w", action, ErrBadArgs)
	}
	return cmdErr("loop", err)
}

func (c *Controller) Dwell(x, y float64) { c.dwell.SetPosition(x, y) }
func (c *Controller) DwellStart()        { c.dwell.Start() }
func (c *Controller) DwellStop()         { c.dwell.Stop() }

// Status is a point-in-time view of the whole instrument.
type Status struct {
	Clock       float64             `json:"clock"`
	BPM         int                 `json:"bpm"`
	Swing       float64             `json:"swing"`
	Playing     bool                `json:"playing"`
	Step        int                 `json:"step"`
	Bar         int                 `json:"bar"`
	Pattern     []string            `json:"pattern"`
	FX          map[string]float64  `json:"fx"`
	Synth       map[string]float64  `json:"synth"`
	Loops       []looper.SlotStatus `json:"loops"`
	Dwell       dwell.Params        `json:"dwell"`
	Instruments []string            `json:"instruments"`
	Voices      int                 `json:"voices"`
	Preset      string              `json:"preset,omitempty"`
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	name := c.preset
	c.mu.Unlock()
	return Status{
		Clock:       c.audio.Now(),
		BPM:         c.seq.BPM(),
		Swing:       c.seq.Swing(),
		Playing:     c.seq.Playing(),
		Step:        c.seq.Step(),
		Bar:         c.seq.Bar(),
		Pattern:     c.seq.Pattern.Rows(),
		FX:          c.audio.Snapshot(),
		Synth:       c.audio.SynthParams().Map(),
		Loops:       c.loop.Status(),
		Dwell:       c.dwell.Params(),
		Instruments: c.audio.Instruments(),
		Voices:      c.audio.Voices(),
		Preset:      name,
	}
}

// ApplyPreset loads a preset into the pattern, tempo, mix and synth.
func (c *Controller) ApplyPreset(name string) error {
	if c.presets == nil {
		return cmdErr("preset", ErrNoPresets)
	}
	p, err := c.presets.Load(name)
	if err != nil {
		return cmdErr("preset", err)
	}
	return cmdErr("preset", c.apply(p))
}

func (c *Controller) apply(p preset.Preset) error {
	grid, err := p.Grid()
	if err != nil {
		return err
	}
	c.seq.Pattern.CopyFrom(grid)
	if p.BPM > 0 {
		c.SetBPM(p.BPM)
	}
	c.seq.SetSwing(p.Swing)
	// Controls a preset leaves out go back to their defaults so nothing
	// lingers from the previous preset.
	fx := make(map[string]float64, len(p.FX))
	for _, info := range c.audio.Params() {
		fx[info.Name] = info.Default
	}
	for k, v := range p.FX {
		fx[k] = v
	}
	if err := c.audio.Apply(fx); err != nil {
		return err
	}
	synth := audio.DefaultSynthParams().Map()
	for k, v := range p.Synth {
		synth[k] = v
	}
	for k, v := range synth {
		if err := c.audio.SetSynthParam(k, v); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.preset = p.Name
	c.mu.Unlock()
	c.log.Infof("preset %s applied", p.Name)
	return nil
}

// Snapshot captures the current groove and mix as a preset.
func (c *Controller) Snapshot(name string) preset.Preset {
	vols := make([]float64, model.Tracks)
	for t := range vols {
		vols[t] = c.seq.Pattern.Volume(t)
	}
	return preset.Preset{
		Name:    name,
		BPM:     c.seq.BPM(),
		Swing:   c.seq.Swing(),
		Pattern: c.seq.Pattern.Rows(),
		Volumes: vols,
		FX:      c.audio.Snapshot(),
		Synth:   c.audio.SynthParams().Map(),
	}
}

// SavePreset stores the current state under name.
func (c *Controller) SavePreset(name string) error {
	if c.presets == nil {
		return cmdErr("preset", ErrNoPresets)
	}
	if err := c.presets.Save(c.Snapshot(name)); err != nil {
		return cmdErr("preset", err)
	}
	c.mu.Lock()
	c.preset = name
	c.mu.Unlock()
	return nil
}

// WatchPresets reapplies the active preset whenever its file changes.
func (c *Controller) WatchPresets(ctx context.Context) error {
	if c.presets == nil {
		return nil
	}
	changes := c.presets.Subscribe()
	errc := make(chan error, 1)
	go func() { errc <- c.presets.Watch(ctx) }()
	for {
		select {
		case <-ctx.Done():
			return <-errc
		case err := <-errc:
			return err
		case ch := <-changes:
			c.mu.Lock()
			active := c.preset
			c.mu.Unlock()
			if ch.Removed || ch.Name != active {
				continue
			}
			if err := c.ApplyPreset(ch.Name); err != nil {
				c.log.Warnf("reload %s: %v", ch.Name, err)
			}
		}
	}
}
