package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ingyamilmolinar/mk1/core/beat"
	"github.com/ingyamilmolinar/mk1/core/model"
	"github.com/ingyamilmolinar/mk1/internal/log"
)

// Event is a transport update published to the UI.
type Event struct {
	Step    int
	Bar     int
	Playing bool
}

// Trigger receives one drum hit per active track of a step.
type Trigger func(track int, velocity float64)

const tickInterval = 5 * time.Millisecond

// Sequencer runs the step scheduler on its own goroutine and turns the
// pattern into triggers.
type Sequencer struct {
	Pattern *model.Pattern
	Events  chan Event

	mu      sync.Mutex
	sched   *beat.Scheduler
	trigger Trigger
	bar     int
	started bool
	log     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Sequencer and starts its run loop. It stays silent until
// Start is called.
func New(p *model.Pattern, trigger Trigger, logger *log.Logger) *Sequencer {
	s := newSequencer(p, trigger, logger)
	go s.run()
	return s
}

func newSequencer(p *model.Pattern, trigger Trigger, logger *log.Logger) *Sequencer {
	if p == nil {
		p = model.NewPattern()
	}
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		Pattern: p,
		Events:  make(chan Event, 16),
		sched:   beat.NewScheduler(),
		trigger: trigger,
		log:     logger.With("seq"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.sched.BeatLength = model.Steps
	s.sched.OnTick = s.onStep
	return s
}

func (s *Sequencer) run() {
	defer close(s.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.ctx.Done():
			return
		}
	}
}

// Tick plays the next step if it is due. The run loop calls it every few
// milliseconds; offline renderers call it once per block.
func (s *Sequencer) Tick() {
	s.mu.Lock()
	s.sched.Tick()
	s.mu.Unlock()
}

// onStep runs with s.mu held.
func (s *Sequencer) onStep(step int) {
	if step == 0 {
		if s.started {
			s.bar++
		}
		s.started = true
	}
	for _, track := range s.Pattern.Active(step) {
		if s.trigger != nil {
			s.trigger(track, s.Pattern.Volume(track))
		}
	}
	s.log.Debugf("step %d bar %d", step, s.bar)
	s.publish(Event{Step: step, Bar: s.bar, Playing: true})
}

func (s *Sequencer) publish(ev Event) {
	select {
	case s.Events <- ev:
	default:
	}
}

// Start plays from step 0 of bar 0. It is a no-op while playing.
func (s *Sequencer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched.Running() {
		return
	}
	s.bar = 0
	s.started = false
	s.log.Infof("start at %d bpm", s.sched.BPM)
	s.sched.Start()
}

func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sched.Running() {
		return
	}
	s.sched.Stop()
	s.log.Infof("stop")
	s.publish(Event{Step: s.sched.Step(), Bar: s.bar, Playing: false})
}

// Toggle starts a stopped sequencer or stops a running one and reports
// whether it is now playing.
func (s *Sequencer) Toggle() bool {
	if s.Playing() {
		s.Stop()
		return false
	}
	s.Start()
	return true
}

func (s *Sequencer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Running()
}

// SetBPM updates the tempo, clamped to the supported range, and returns
// the value applied.
func (s *Sequencer) SetBPM(bpm int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.SetBPM(bpm)
	return s.sched.BPM
}

func (s *Sequencer) BPM() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.BPM
}

func (s *Sequencer) SetSwing(v float64) {
	s.mu.Lock()
	s.sched.SetSwing(v)
	s.mu.Unlock()
}

func (s *Sequencer) Swing() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Swing
}

// Step returns the last step played.
func (s *Sequencer) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Step()
}

func (s *Sequencer) Bar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bar
}

// SetNowFunc overrides the scheduler clock.
func (s *Sequencer) SetNowFunc(f func() time.Time) {
	s.mu.Lock()
	s.sched.SetNowFunc(f)
	s.mu.Unlock()
}

// Close terminates the run loop and waits for it to exit.
func (s *Sequencer) Close() {
	s.cancel()
	<-s.done
}
