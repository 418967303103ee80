package audio

import (
	"errors"
	"math"
	"testing"
)

func TestSynthMonophonicRetrigger(t *testing.T) {
	s := NewSynth(DefaultSampleRate)
	v := s.NoteOn(60, 1)
	if v == nil {
		t.Fatal("first note should allocate a voice")
	}
	v.Sample()
	if again := s.NoteOn(64, 1); again != nil {
		t.Fatal("second note should retrigger, not allocate")
	}
	if n, ok := s.Current(); !ok || n != 64 {
		t.Fatalf("current = %d %v, want 64", n, ok)
	}
}

func TestSynthIgnoresStaleNoteOff(t *testing.T) {
	s := NewSynth(DefaultSampleRate)
	s.NoteOn(60, 1)
	s.NoteOn(62, 1)
	s.NoteOff(60)
	if n, ok := s.Current(); !ok || n != 62 {
		t.Fatalf("stale release affected note: %d %v", n, ok)
	}
	s.NoteOff(62)
	if _, ok := s.Current(); ok {
		t.Fatal("note still gated after release")
	}
}

func TestSynthVoiceFinishesAfterRelease(t *testing.T) {
	s := NewSynth(DefaultSampleRate)
	_ = s.SetParam("release", 0.01)
	v := s.NoteOn(69, 1)
	for i := 0; i < 1000; i++ {
		v.Sample()
	}
	s.NoteOff(69)
	done := false
	for i := 0; i < DefaultSampleRate && !done; i++ {
		_, done = v.Sample()
	}
	if !done {
		t.Fatal("voice never finished")
	}
	if v2 := s.NoteOn(69, 1); v2 == nil {
		t.Fatal("finished voice should not be retriggered")
	}
}

func TestSynthParams(t *testing.T) {
	var p SynthParams = DefaultSynthParams()
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"wave", 9, float64(WaveTriangle)},
		{"sustain", 2, 1},
		{"octave", -7, -3},
		{"cutoff", 800, 800},
	}
	for _, tt := range tests {
		if err := p.Set(tt.name, tt.in); err != nil {
			t.Fatal(err)
		}
		if got, _ := p.Get(tt.name); got != tt.want {
			t.Errorf("%s = %f, want %f", tt.name, got, tt.want)
		}
	}
	if err := p.Set("cutoff", math.NaN()); !errors.Is(err, ErrBadValue) {
		t.Fatalf("NaN cutoff: %v", err)
	}
	if p.Cutoff != 800 {
		t.Fatalf("cutoff changed to %f", p.Cutoff)
	}
	if err := p.Set("lfo", 1); !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("unknown param: %v", err)
	}
	if len(p.Map()) != len(synthParamNames) {
		t.Fatal("Map incomplete")
	}
}

func TestParseWaveform(t *testing.T) {
	for in, want := range map[string]Waveform{"sine": WaveSine, "SAW": WaveSaw, "3": WaveTriangle} {
		got, err := ParseWaveform(in)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWaveform("noise"); err == nil {
		t.Fatal("expected error")
	}
}
