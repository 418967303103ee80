package service

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/audio"
)

func testParams() []audio.ParamInfo {
	return audio.NewGraph(audio.DefaultSampleRate).Params()
}

func TestMIDIDrumChannel(t *testing.T) {
	m := NewMIDI(&recorder{}, testParams(), nil, nil)
	tests := []struct {
		key  uint8
		want string
	}{
		{36, "kick"},
		{38, "snare"},
		{42, "hihat"},
		{46, "openhat"},
		{39, "clap"},
		{45, "tom"},
		{37, "rim"},
		{56, "cowbell"},
	}
	for _, tt := range tests {
		cmd, ok := m.Command(midi.NoteOn(DrumChannel, tt.key, 127))
		if !ok || cmd.Action != "drum" || cmd.Args.ID != tt.want {
			t.Errorf("key %d = %+v (%v), want drum %s", tt.key, cmd, ok, tt.want)
			continue
		}
		if cmd.Source != looper.SourceMIDI || *cmd.Args.Velocity != 1 {
			t.Errorf("key %d: source %q velocity %v", tt.key, cmd.Source, *cmd.Args.Velocity)
		}
	}
	if _, ok := m.Command(midi.NoteOn(DrumChannel, 81, 100)); ok {
		t.Error("unmapped percussion key produced a command")
	}
	if _, ok := m.Command(midi.NoteOff(DrumChannel, 36)); ok {
		t.Error("drum release produced a command")
	}
}

func TestMIDISynthNotes(t *testing.T) {
	m := NewMIDI(&recorder{}, testParams(), nil, nil)
	cmd, ok := m.Command(midi.NoteOn(0, 60, 64))
	if !ok || cmd.Action != "note_on" || cmd.Args.Note != 60 {
		t.Fatalf("note on = %+v (%v)", cmd, ok)
	}
	if v := *cmd.Args.Velocity; math.Abs(v-64.0/127) > 1e-9 {
		t.Fatalf("velocity = %v", v)
	}
	cmd, ok = m.Command(midi.NoteOff(0, 60))
	if !ok || cmd.Action != "note_off" || cmd.Args.Note != 60 {
		t.Fatalf("note off = %+v (%v)", cmd, ok)
	}
	// a note on with velocity zero is a release
	cmd, ok = m.Command(midi.NoteOn(3, 61, 0))
	if !ok || cmd.Action != "note_off" {
		t.Fatalf("zero velocity = %+v (%v)", cmd, ok)
	}
}

func TestMIDIControlChange(t *testing.T) {
	m := NewMIDI(&recorder{}, testParams(), nil, nil)
	tests := []struct {
		cc, val uint8
		name    string
		want    float64
	}{
		{91, 0, "reverb.mix", 0},
		{91, 127, "reverb.mix", 1},
		{74, 0, "cutoff", 40},
		{74, 127, "cutoff", 18000},
		{7, 127, "master", 1},
	}
	for _, tt := range tests {
		cmd, ok := m.Command(midi.ControlChange(0, tt.cc, tt.val))
		if !ok || cmd.Action != "fx" || cmd.Args.ID != tt.name {
			t.Errorf("cc %d = %+v (%v)", tt.cc, cmd, ok)
			continue
		}
		if math.Abs(cmd.Args.Value-tt.want) > 1e-6 {
			t.Errorf("cc %d value %d = %v, want %v", tt.cc, tt.val, cmd.Args.Value, tt.want)
		}
	}
	if _, ok := m.Command(midi.ControlChange(0, 20, 1)); ok {
		t.Error("unmapped controller produced a command")
	}
}

func TestMIDIHandleExecutes(t *testing.T) {
	rec := &recorder{}
	m := NewMIDI(rec, testParams(), map[uint8]string{10: "drive"}, nil)
	m.Handle(midi.NoteOn(DrumChannel, 36, 100))
	m.Handle(midi.ControlChange(0, 10, 127))
	m.Handle(midi.ControlChange(0, 74, 127))
	if len(rec.cmds) != 2 {
		t.Fatalf("executed %d commands, want 2: %+v", len(rec.cmds), rec.cmds)
	}
	if rec.cmds[1].Args.ID != "drive" || rec.cmds[1].Args.Value != 1 {
		t.Fatalf("cc command = %+v", rec.cmds[1])
	}
}
