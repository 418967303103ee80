package beat

import (
	"time"
)

const (
	MinBPM     = 40
	MaxBPM     = 300
	DefaultBPM = 120
	MaxSwing   = 0.5

	// resyncSteps is how far behind the clock may fall before the
	// scheduler drops the backlog instead of catching up.
	resyncSteps = 4
)

// Scheduler is a sixteenth-note step clock. It is driven by Tick and is not
// safe for concurrent use.
type Scheduler struct {
	BPM        int
	Swing      float64
	BeatLength int
	OnTick     func(step int)

	now     func() time.Time
	last    time.Time
	step    int
	running bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		BPM:        DefaultBPM,
		BeatLength: 16,
		now:        time.Now,
	}
}

// SetNowFunc overrides the scheduler's clock.
func (s *Scheduler) SetNowFunc(f func() time.Time) {
	s.now = f
}

// ClampBPM limits bpm to the supported tempo range.
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

func (s *Scheduler) SetBPM(bpm int) { s.BPM = ClampBPM(bpm) }

// SetSwing sets the swing amount, clamped to [0, MaxSwing].
func (s *Scheduler) SetSwing(v float64) {
	if !(v >= 0) {
		v = 0
	}
	if v > MaxSwing {
		v = MaxSwing
	}
	s.Swing = v
}

// StepDuration is the unswung length of one step.
func StepDuration(bpm int) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(bpm) / 4
}

// duration of step i once swing is applied: even steps are longer.
func (s *Scheduler) duration(i int) time.Duration {
	base := StepDuration(s.BPM)
	shift := time.Duration(float64(base) * s.Swing)
	if i%2 == 0 {
		return base + shift
	}
	return base - shift
}

// Start rewinds to step 0 and fires it immediately.
func (s *Scheduler) Start() {
	s.running = true
	s.step = 0
	s.last = s.now()
	if s.BPM > 0 && s.OnTick != nil {
		s.OnTick(0)
	}
}

func (s *Scheduler) Stop() { s.running = false }

func (s *Scheduler) Running() bool { return s.running }

// Step returns the step that fired last.
func (s *Scheduler) Step() int { return s.step }

// Tick fires the next step once the current one has elapsed. It advances at
// most one step per call; when the clock is far behind it resynchronises to
// now instead of replaying the backlog.
func (s *Scheduler) Tick() {
	if !s.running || s.BPM <= 0 || s.BeatLength <= 0 {
		return
	}
	d := s.duration(s.step)
	now := s.now()
	elapsed := now.Sub(s.last)
	if elapsed < d {
		return
	}
	if elapsed > resyncSteps*StepDuration(s.BPM) {
		s.last = now
	} else {
		s.last = s.last.Add(d)
	}
	s.step = (s.step + 1) % s.BeatLength
	if s.OnTick != nil {
		s.OnTick(s.step)
	}
}
