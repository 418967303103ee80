package audio

// Envelope is a linear ADSR measured in samples. Restarting from a sounding
// state ramps from the current level so retriggers never click.
type Envelope struct {
	Attack  int64
	Decay   int64
	Sustain float64
	Release int64

	level   float64
	from    float64
	t       int64
	gate    bool
	started bool
}

// Next returns the envelope level and whether the release has finished.
func (e *Envelope) Next() (float64, bool) {
	if !e.started {
		return 0, true
	}
	t := e.t
	e.t++
	if e.gate {
		if t < e.Attack {
			phase := float64(t) / float64(e.Attack)
			e.level = (1-phase)*e.from + phase
			return e.level, false
		}
		pat := t - e.Attack
		if pat < e.Decay {
			phase := float64(pat) / float64(e.Decay)
			e.level = (1 - phase) + phase*e.Sustain
			return e.level, false
		}
		e.level = e.Sustain
		if e.Sustain <= 0 {
			return 0, true
		}
		return e.level, false
	}
	if t < e.Release {
		phase := float64(t) / float64(e.Release)
		e.level = (1 - phase) * e.from
		return e.level, false
	}
	e.level = 0
	return 0, true
}

func (e *Envelope) Start() {
	e.from = 0
	e.level = 0
	e.gate = true
	e.t = 0
	e.started = true
}

// Restart re-enters the attack from the current level.
func (e *Envelope) Restart() {
	e.from = e.level
	e.gate = true
	e.t = 0
	e.started = true
}

func (e *Envelope) Stop() {
	if !e.gate {
		return
	}
	e.from = e.level
	e.gate = false
	e.t = 0
}

func (e *Envelope) Gated() bool { return e.gate }
