package audio

import "testing"

func TestEnvelopeStages(t *testing.T) {
	e := Envelope{Attack: 10, Decay: 10, Sustain: 0.5, Release: 10}
	e.Start()
	var peak float64
	for i := 0; i < 20; i++ {
		v, done := e.Next()
		if done {
			t.Fatalf("finished during attack/decay at %d", i)
		}
		if v > peak {
			peak = v
		}
	}
	if peak < 0.9 {
		t.Fatalf("attack never reached the top: %f", peak)
	}
	v, _ := e.Next()
	if v != 0.5 {
		t.Fatalf("expected sustain 0.5, got %f", v)
	}
	e.Stop()
	var done bool
	for i := 0; i < 11; i++ {
		_, done = e.Next()
	}
	if !done {
		t.Fatalf("release did not finish")
	}
}

func TestEnvelopeRestartKeepsLevel(t *testing.T) {
	e := Envelope{Attack: 100, Decay: 1, Sustain: 1, Release: 100}
	e.Start()
	for i := 0; i < 50; i++ {
		e.Next()
	}
	mid := e.level
	e.Restart()
	v, _ := e.Next()
	if v < mid-1e-9 {
		t.Fatalf("restart dropped level from %f to %f", mid, v)
	}
}

func TestEnvelopeZeroSustainFinishes(t *testing.T) {
	e := Envelope{Attack: 1, Decay: 2, Sustain: 0, Release: 1}
	e.Start()
	var done bool
	for i := 0; i < 5 && !done; i++ {
		_, done = e.Next()
	}
	if !done {
		t.Fatalf("percussive envelope should end after decay")
	}
}

func TestEnvelopeRetriggerDuringRelease(t *testing.T) {
	e := Envelope{Attack: 10, Decay: 10, Sustain: 0.8, Release: 100}
	e.Start()
	for i := 0; i < 25; i++ {
		e.Next()
	}
	e.Stop()
	var v float64
	for i := 0; i < 50; i++ {
		v, _ = e.Next()
	}
	e.Restart()
	next, _ := e.Next()
	if next < v-1e-9 || next > v+0.05 {
		t.Fatalf("retrigger mid-release jumped from %f to %f", v, next)
	}
}
