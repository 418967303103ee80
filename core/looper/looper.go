package looper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/log"
)

var (
	ErrSlotEmpty     = errors.New("slot is empty")
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrSlotBusy      = errors.New("slot is recording")
	ErrNothingToUndo = errors.New("nothing to undo")
)

// Player sounds replayed events.
type Player interface {
	Replay(ev Event)
}

// Tapper provides post-master audio for raw capture.
type Tapper interface {
	AddTap(t audio.Tap) int
	RemoveTap(id int)
}

// Config wires a Looper to its clock and collaborators.
type Config struct {
	Now        func() time.Time
	BPM        func() int // tempo used when Quantize is set
	Quantize   bool
	SampleRate int
	MaxCapture time.Duration
	Tick       time.Duration
	Logger     *log.Logger
}

func (c *Config) defaults() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.SampleRate <= 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.MaxCapture <= 0 {
		c.MaxCapture = time.Minute
	}
	if c.Tick <= 0 {
		c.Tick = 5 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = log.Discard()
	}
}

type slot struct {
	name    string
	state   State
	events  []Event
	length  time.Duration
	passes  int
	started time.Time // record start or cycle origin while playing
	last    time.Duration

	tap     int
	tapping bool
	capMu   sync.Mutex
	capture []float32
}

// Looper records trigger events into four slots and replays them cyclically.
type Looper struct {
	mu     sync.Mutex
	cfg    Config
	slots  [4]*slot
	player Player
	tapper Tapper
	log    *log.Logger
}

// New builds a Looper. player and tapper may be nil.
func New(cfg Config, player Player, tapper Tapper) *Looper {
	cfg.defaults()
	l := &Looper{cfg: cfg, player: player, tapper: tapper, log: cfg.Logger.With("looper")}
	for i := range l.slots {
		l.slots[i] = &slot{name: Slots[i]}
	}
	return l
}

func (l *Looper) slot(i int) (*slot, error) {
	if i < 0 || i >= len(l.slots) {
		return nil, fmt.Errorf("slot %d: %w", i, ErrUnknownSlot)
	}
	return l.slots[i], nil
}

// SetQuantize turns bar quantisation of new takes on or off.
func (l *Looper) SetQuantize(on bool) {
	l.mu.Lock()
	l.cfg.Quantize = on
	l.mu.Unlock()
}

// Record starts a fresh take on an empty or stopped slot, or starts an
// overdub pass on a playing one.
func (l *Looper) Record(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return err
	}
	now := l.cfg.Now()
	switch s.state {
	case Empty, Stopped:
		l.reset(s)
		s.state = Recording
		s.started = now
		l.startCapture(s)
		l.log.Infof("slot %s recording", s.name)
	case Playing:
		s.passes++
		s.state = Overdubbing
		l.log.Infof("slot %s overdub pass %d", s.name, s.passes)
	}
	return nil
}

// Stop closes a take, ends an overdub pass or stops playback.
// The tempo is read before taking the looper lock; the sequencer logs into
// the looper while holding its own lock.
func (l *Looper) Stop(i int) error {
	bpm := 0
	if l.cfg.BPM != nil {
		bpm = l.cfg.BPM()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return err
	}
	now := l.cfg.Now()
	switch s.state {
	case Recording:
		l.stopCapture(s)
		length := now.Sub(s.started)
		if l.cfg.Quantize {
			length = quantize(length, bpm)
		}
		kept := s.events[:0]
		for _, ev := range s.events {
			if ev.Offset < length {
				kept = append(kept, ev)
			}
		}
		s.events = kept
		if length <= 0 {
			l.reset(s)
			l.log.Infof("slot %s: empty take discarded", s.name)
			return nil
		}
		s.length = length
		l.play(s, now)
		l.log.Infof("slot %s: take closed, %v with %d events", s.name, length, len(s.events))
	case Overdubbing:
		s.state = Playing
	case Playing:
		s.state = Stopped
	}
	return nil
}

// Play replays a slot from offset 0.
func (l *Looper) Play(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return err
	}
	switch s.state {
	case Empty:
		return fmt.Errorf("slot %s: %w", s.name, ErrSlotEmpty)
	case Recording:
		return fmt.Errorf("slot %s: %w", s.name, ErrSlotBusy)
	}
	l.play(s, l.cfg.Now())
	return nil
}

func (l *Looper) play(s *slot, now time.Time) {
	s.state = Playing
	s.started = now
	s.last = -1
	for i := range s.events {
		s.events[i].cycle = -1
	}
}

// Clear empties a slot.
func (l *Looper) Clear(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return err
	}
	l.stopCapture(s)
	l.reset(s)
	return nil
}

// ClearAll empties every slot.
func (l *Looper) ClearAll() {
	for i := range l.slots {
		_ = l.Clear(i)
	}
	l.log.Info("all slots cleared")
}

// Undo removes the events of the last overdub pass.
func (l *Looper) Undo(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return err
	}
	if s.passes == 0 {
		return fmt.Errorf("slot %s: %w", s.name, ErrNothingToUndo)
	}
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.Pass != s.passes {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.passes--
	if s.state == Overdubbing {
		s.state = Playing
	}
	return nil
}

func (l *Looper) reset(s *slot) {
	s.state = Empty
	s.events = nil
	s.length = 0
	s.passes = 0
	s.last = 0
	s.capMu.Lock()
	s.capture = nil
	s.capMu.Unlock()
}

// quantize rounds d to a whole number of 4/4 bars, at least one.
func quantize(d time.Duration, bpm int) time.Duration {
	if bpm <= 0 || d <= 0 {
		return d
	}
	bar := 4 * time.Minute / time.Duration(bpm)
	n := (d + bar/2) / bar
	if n < 1 {
		n = 1
	}
	return n * bar
}

// Log records ev into every slot that is recording or overdubbing.
// Events replayed by the looper itself are ignored.
func (l *Looper) Log(ev Event) {
	l.LogAt(ev, l.cfg.Now())
}

// LogAt is Log for an event that started at a known time, such as a held
// note logged on release.
func (l *Looper) LogAt(ev Event, now time.Time) {
	if ev.Source == SourceLoop {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.slots {
		switch s.state {
		case Recording:
			if now.Before(s.started) {
				continue
			}
			e := ev
			e.Offset = now.Sub(s.started)
			e.Pass = 0
			e.cycle = -1
			s.events = append(s.events, e)
		case Overdubbing:
			elapsed := now.Sub(s.started)
			if elapsed < 0 {
				continue
			}
			e := ev
			e.Offset = elapsed % s.length
			e.Pass = s.passes
			e.cycle = int64(elapsed / s.length)
			s.events = append(s.events, e)
		}
	}
}

// Tick replays the events that became due since the previous call. A
// stalled clock catches up by at most one loop length.
func (l *Looper) Tick() {
	l.mu.Lock()
	now := l.cfg.Now()
	var due []Event
	for _, s := range l.slots {
		if s.state != Playing && s.state != Overdubbing {
			continue
		}
		due = append(due, s.due(now.Sub(s.started))...)
	}
	l.mu.Unlock()
	if l.player == nil {
		return
	}
	for _, ev := range due {
		ev.Source = SourceLoop
		l.player.Replay(ev)
	}
}

func (s *slot) due(elapsed time.Duration) []Event {
	if s.length <= 0 || elapsed <= s.last {
		return nil
	}
	if elapsed-s.last > s.length {
		s.last = elapsed - s.length
	}
	var out []Event
	first := int64(0)
	if s.last > 0 {
		first = int64(s.last / s.length)
	}
	lastCycle := int64(elapsed / s.length)
	for c := first; c <= lastCycle; c++ {
		base := time.Duration(c) * s.length
		var batch []Event
		for _, ev := range s.events {
			at := base + ev.Offset
			if at > s.last && at <= elapsed && ev.cycle != c {
				batch = append(batch, ev)
			}
		}
		sort.SliceStable(batch, func(i, j int) bool { return batch[i].Offset < batch[j].Offset })
		out = append(out, batch...)
	}
	s.last = elapsed
	return out
}

// Run ticks the looper until ctx is done.
func (l *Looper) Run(ctx context.Context) {
	t := time.NewTicker(l.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Tick()
		}
	}
}

// SlotStatus summarises one slot.
type SlotStatus struct {
	Slot     string        `json:"slot"`
	State    State         `json:"state"`
	Length   time.Duration `json:"length"`
	Events   int           `json:"events"`
	Passes   int           `json:"passes"`
	Position time.Duration `json:"position"`
	Frames   int           `json:"frames"`
}

func (l *Looper) Status() []SlotStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.cfg.Now()
	out := make([]SlotStatus, len(l.slots))
	for i, s := range l.slots {
		st := SlotStatus{Slot: s.name, State: s.state, Length: s.length, Events: len(s.events), Passes: s.passes}
		switch s.state {
		case Playing, Overdubbing:
			st.Position = now.Sub(s.started) % s.length
		case Recording:
			st.Position = now.Sub(s.started)
		}
		s.capMu.Lock()
		st.Frames = len(s.capture) / audio.Channels
		s.capMu.Unlock()
		out[i] = st
	}
	return out
}

// Events returns a copy of the slot's event log ordered by offset.
func (l *Looper) Events(i int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.slot(i)
	if err != nil {
		return nil, err
	}
	out := append([]Event(nil), s.events...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Offset < out[b].Offset })
	return out, nil
}

// ExportEvents writes the slot's event log as JSON.
func (l *Looper) ExportEvents(i int, w io.Writer) error {
	evs, err := l.Events(i)
	if err != nil {
		return err
	}
	l.mu.Lock()
	doc := struct {
		Slot   string        `json:"slot"`
		Length time.Duration `json:"length"`
		Events []Event       `json:"events"`
	}{l.slots[i].name, l.slots[i].length, evs}
	l.mu.Unlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
