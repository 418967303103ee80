package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/ingyamilmolinar/mk1/core/beat"
	"github.com/ingyamilmolinar/mk1/core/model"
)

type hit struct {
	track int
	vel   float64
}

type recorder struct {
	mu   sync.Mutex
	hits []hit
}

func (r *recorder) trigger(track int, vel float64) {
	r.mu.Lock()
	r.hits = append(r.hits, hit{track, vel})
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}

// manual returns a sequencer without a run loop, driven by tick().
func manual(t *testing.T, p *model.Pattern) (*Sequencer, *recorder, *time.Time) {
	t.Helper()
	rec := &recorder{}
	s := newSequencer(p, rec.trigger, nil)
	now := time.Unix(0, 0)
	s.SetNowFunc(func() time.Time { return now })
	return s, rec, &now
}

func TestSequencerFiresActiveTracks(t *testing.T) {
	p := model.NewPattern()
	_ = p.Set(0, 0, true)
	_ = p.Set(2, 0, true)
	_ = p.Set(1, 1, true)
	_ = p.SetVolume(2, 0.5)
	s, rec, now := manual(t, p)
	s.Start()
	if rec.count() != 2 {
		t.Fatalf("step 0 fired %v", rec.hits)
	}
	if rec.hits[1] != (hit{2, 0.5}) {
		t.Fatalf("volume not passed: %v", rec.hits[1])
	}
	*now = now.Add(beat.StepDuration(s.BPM()))
	s.Tick()
	if rec.count() != 3 || rec.hits[2].track != 1 {
		t.Fatalf("step 1 fired %v", rec.hits)
	}
}

func TestSequencerSkipsMutedTracks(t *testing.T) {
	p := model.NewPattern()
	_ = p.Set(4, 0, true)
	_ = p.SetMute(4, true)
	s, rec, _ := manual(t, p)
	s.Start()
	if rec.count() != 0 {
		t.Fatalf("muted track fired: %v", rec.hits)
	}
}

func TestSequencerCountsBars(t *testing.T) {
	s, _, now := manual(t, nil)
	s.Start()
	step := beat.StepDuration(s.BPM())
	for i := 0; i < 2*model.Steps; i++ {
		*now = now.Add(step)
		s.Tick()
	}
	if s.Bar() != 2 || s.Step() != 0 {
		t.Fatalf("bar=%d step=%d, want bar 2 step 0", s.Bar(), s.Step())
	}
}

func TestSequencerPublishesEvents(t *testing.T) {
	s, _, _ := manual(t, nil)
	s.Start()
	select {
	case ev := <-s.Events:
		if ev != (Event{Step: 0, Bar: 0, Playing: true}) {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("no event on start")
	}
	s.Stop()
	if ev := <-s.Events; ev.Playing {
		t.Fatalf("stop event still playing: %+v", ev)
	}
}

func TestEventsNeverBlock(t *testing.T) {
	s, _, now := manual(t, nil)
	s.Start()
	for i := 0; i < 100; i++ {
		*now = now.Add(beat.StepDuration(s.BPM()))
		s.Tick()
	}
	if len(s.Events) != cap(s.Events) {
		t.Fatalf("expected full channel, got %d", len(s.Events))
	}
}

func TestToggleAndBPM(t *testing.T) {
	s, _, _ := manual(t, nil)
	if !s.Toggle() || !s.Playing() {
		t.Fatal("Toggle should start")
	}
	if s.Toggle() || s.Playing() {
		t.Fatal("Toggle should stop")
	}
	if got := s.SetBPM(500); got != beat.MaxBPM || s.BPM() != beat.MaxBPM {
		t.Fatalf("SetBPM clamp = %d", got)
	}
}

func TestRunLoopPlaysAndCloses(t *testing.T) {
	p := model.NewPattern()
	for i := 0; i < model.Steps; i++ {
		_ = p.Set(0, i, true)
	}
	rec := &recorder{}
	s := New(p, rec.trigger, nil)
	s.SetBPM(beat.MaxBPM)
	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Close()
	if rec.count() < 3 {
		t.Fatalf("run loop fired %d steps", rec.count())
	}
}
