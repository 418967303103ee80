package looper

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ingyamilmolinar/mk1/internal/audio"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type replayLog struct {
	mu  sync.Mutex
	evs []Event
}

func (r *replayLog) Replay(ev Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *replayLog) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.ID
	}
	return out
}

type fakeTapper struct {
	taps map[int]audio.Tap
	next int
}

func (f *fakeTapper) AddTap(t audio.Tap) int {
	if f.taps == nil {
		f.taps = map[int]audio.Tap{}
	}
	f.next++
	f.taps[f.next] = t
	return f.next
}

func (f *fakeTapper) RemoveTap(id int) { delete(f.taps, id) }

func (f *fakeTapper) feed(frames []float32) {
	for _, t := range f.taps {
		t(frames)
	}
}

func newTestLooper(cfg Config) (*Looper, *fakeClock, *replayLog, *fakeTapper) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	cfg.Now = clock.now
	rec := &replayLog{}
	tap := &fakeTapper{}
	return New(cfg, rec, tap), clock, rec, tap
}

func drum(id string) Event {
	return Event{Kind: KindDrum, ID: id, Velocity: 1, Source: SourceLive}
}

func TestRecordAndPlayCycles(t *testing.T) {
	l, clock, rec, _ := newTestLooper(Config{})
	if err := l.Record(0); err != nil {
		t.Fatal(err)
	}
	l.Log(drum("kick"))
	clock.advance(500 * time.Millisecond)
	l.Log(drum("snare"))
	clock.advance(500 * time.Millisecond)
	if err := l.Stop(0); err != nil {
		t.Fatal(err)
	}
	st := l.Status()[0]
	if st.State != Playing || st.Length != time.Second || st.Events != 2 {
		t.Fatalf("status after take: %+v", st)
	}

	l.Tick()
	clock.advance(600 * time.Millisecond)
	l.Tick()
	clock.advance(400 * time.Millisecond)
	l.Tick()
	want := []string{"kick", "snare", "kick"}
	got := rec.ids()
	if len(got) != len(want) {
		t.Fatalf("replayed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replayed %v, want %v", got, want)
		}
	}
	for _, ev := range rec.evs {
		if ev.Source != SourceLoop {
			t.Fatalf("replayed event not tagged: %+v", ev)
		}
	}
}

func TestPlayEmptySlot(t *testing.T) {
	l, _, _, _ := newTestLooper(Config{})
	if err := l.Play(1); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("Play(empty) = %v", err)
	}
	if err := l.Play(7); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("Play(7) = %v", err)
	}
}

func TestLoopEventsAreNotRerecorded(t *testing.T) {
	l, clock, _, _ := newTestLooper(Config{})
	_ = l.Record(0)
	_ = l.Record(1)
	l.Log(Event{Kind: KindDrum, ID: "kick", Source: SourceLoop})
	l.Log(drum("hihat"))
	clock.advance(time.Second)
	for _, st := range l.Status()[:2] {
		if st.Events != 1 {
			t.Fatalf("slot %s has %d events", st.Slot, st.Events)
		}
	}
}

func TestOverdubAndUndo(t *testing.T) {
	l, clock, rec, _ := newTestLooper(Config{})
	_ = l.Record(0)
	l.Log(drum("kick"))
	clock.advance(time.Second)
	_ = l.Stop(0)
	l.Tick() // kick at 0

	if err := l.Record(0); err != nil {
		t.Fatal(err)
	}
	if st := l.Status()[0]; st.State != Overdubbing {
		t.Fatalf("state = %v", st.State)
	}
	clock.advance(250 * time.Millisecond)
	l.Log(drum("clap"))
	l.Tick()
	if got := rec.ids(); len(got) != 1 {
		t.Fatalf("overdubbed event replayed in its own cycle: %v", got)
	}
	_ = l.Stop(0)

	clock.advance(time.Second)
	l.Tick() // kick of cycle 1 plus clap at 1.25
	if got := rec.ids(); len(got) != 3 || got[2] != "clap" {
		t.Fatalf("after one cycle: %v", got)
	}
	if err := l.Undo(0); err != nil {
		t.Fatal(err)
	}
	evs, _ := l.Events(0)
	if len(evs) != 1 || evs[0].ID != "kick" {
		t.Fatalf("undo left %v", evs)
	}
	if err := l.Undo(0); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("second undo = %v", err)
	}
}

func TestOverdubReplaysEveryCycleAfterRestart(t *testing.T) {
	l, clock, rec, _ := newTestLooper(Config{})
	_ = l.Record(0)
	l.Log(drum("kick"))
	clock.advance(time.Second)
	_ = l.Stop(0)
	l.Tick()

	_ = l.Record(0)
	clock.advance(1250 * time.Millisecond) // cycle 1
	l.Log(drum("snare"))
	l.Tick()
	_ = l.Stop(0) // overdub -> playing
	_ = l.Stop(0) // playing -> stopped
	if err := l.Play(0); err != nil {
		t.Fatal(err)
	}

	count := func() (n int) {
		for _, id := range rec.ids() {
			if id == "snare" {
				n++
			}
		}
		return n
	}
	before := count()
	for i := 0; i < 6; i++ {
		clock.advance(500 * time.Millisecond)
		l.Tick()
	}
	if got := count() - before; got != 3 {
		t.Fatalf("snare replayed %d times over three cycles, want 3", got)
	}
}

func TestClearAll(t *testing.T) {
	l, clock, _, _ := newTestLooper(Config{})
	for i := 0; i < 2; i++ {
		_ = l.Record(i)
		l.Log(drum("kick"))
	}
	clock.advance(time.Second)
	_ = l.Stop(0)
	l.ClearAll()
	for _, st := range l.Status() {
		if st.State != Empty || st.Events != 0 {
			t.Fatalf("slot %s not cleared: %+v", st.Slot, st)
		}
	}
}

func TestQuantizeRoundsToBars(t *testing.T) {
	l, clock, _, _ := newTestLooper(Config{Quantize: true, BPM: func() int { return 120 }})
	_ = l.Record(2)
	l.Log(drum("kick"))
	clock.advance(2300 * time.Millisecond)
	l.Log(drum("snare")) // past the quantised end
	clock.advance(200 * time.Millisecond)
	_ = l.Stop(2)
	st := l.Status()[2]
	if st.Length != 2*time.Second {
		t.Fatalf("length = %v, want one 2s bar", st.Length)
	}
	if st.Events != 1 {
		t.Fatalf("events beyond the bar kept: %d", st.Events)
	}
}

func TestZeroLengthTakeIsDiscarded(t *testing.T) {
	l, _, _, _ := newTestLooper(Config{})
	_ = l.Record(0)
	_ = l.Stop(0)
	if st := l.Status()[0]; st.State != Empty {
		t.Fatalf("state = %v", st.State)
	}
}

func TestStopAndReplayFromStart(t *testing.T) {
	l, clock, rec, _ := newTestLooper(Config{})
	_ = l.Record(0)
	clock.advance(100 * time.Millisecond)
	l.Log(drum("rim"))
	clock.advance(900 * time.Millisecond)
	_ = l.Stop(0)
	_ = l.Stop(0)
	if st := l.Status()[0]; st.State != Stopped {
		t.Fatalf("state = %v", st.State)
	}
	clock.advance(5 * time.Second)
	l.Tick()
	if len(rec.ids()) != 0 {
		t.Fatal("stopped slot replayed")
	}
	_ = l.Play(0)
	l.Tick()
	clock.advance(100 * time.Millisecond)
	l.Tick()
	if got := rec.ids(); len(got) != 1 || got[0] != "rim" {
		t.Fatalf("replay after Play: %v", got)
	}
}

func TestStalledClockCatchesUpOneLoop(t *testing.T) {
	l, clock, rec, _ := newTestLooper(Config{})
	_ = l.Record(0)
	l.Log(drum("kick"))
	clock.advance(100 * time.Millisecond)
	_ = l.Stop(0)
	l.Tick()
	clock.advance(10 * time.Second)
	l.Tick()
	if got := rec.ids(); len(got) != 2 {
		t.Fatalf("catch-up replayed %d events, want 2", len(got))
	}
}

func TestRawCaptureAndExport(t *testing.T) {
	l, clock, _, tap := newTestLooper(Config{SampleRate: 1000})
	_ = l.Record(0)
	block := make([]float32, 200) // 100 frames
	for i := range block {
		block[i] = 0.25
	}
	tap.feed(block)
	tap.feed(block)
	clock.advance(150 * time.Millisecond)
	_ = l.Stop(0)
	tap.feed(block)
	if len(tap.taps) != 0 {
		t.Fatal("tap not removed when the take closed")
	}
	frames, err := l.Audio(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 150*audio.Channels {
		t.Fatalf("captured %d samples, want trimmed to %d", len(frames), 150*audio.Channels)
	}

	path := filepath.Join(t.TempDir(), "a.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.ExportWAV(0, f); err != nil {
		t.Fatal(err)
	}
	f.Close()
	s, err := audio.LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 150 || s.SampleRate != 1000 {
		t.Fatalf("exported %d frames at %d Hz", s.Frames(), s.SampleRate)
	}
}

func TestExportEventsJSON(t *testing.T) {
	l, clock, _, _ := newTestLooper(Config{})
	_ = l.Record(3)
	clock.advance(20 * time.Millisecond)
	l.Log(Event{Kind: KindNote, Note: 60, Velocity: 0.5, Duration: 100 * time.Millisecond, Source: SourceMIDI})
	clock.advance(time.Second)
	_ = l.Stop(3)
	var buf bytes.Buffer
	if err := l.ExportEvents(3, &buf); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Slot   string
		Length time.Duration
		Events []Event
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Slot != "D" || len(doc.Events) != 1 || doc.Events[0].Note != 60 || doc.Events[0].Offset != 20*time.Millisecond {
		t.Fatalf("exported %+v", doc)
	}
}

func TestParseSlot(t *testing.T) {
	for name, want := range map[string]int{"A": 0, "b": 1, " D ": 3} {
		if got, err := ParseSlot(name); err != nil || got != want {
			t.Errorf("ParseSlot(%q) = %d, %v", name, got, err)
		}
	}
	if _, err := ParseSlot("E"); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("ParseSlot(E) = %v", err)
	}
}
