package service

import (
	"context"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

// DrumChannel is MIDI channel 10, zero based as on the wire.
const DrumChannel = 9

// GMDrums maps General MIDI percussion keys to drum pads.
var GMDrums = map[uint8]string{
	35: "kick", 36: "kick",
	37: "rim",
	38: "snare", 40: "snare",
	39: "clap",
	42: "hihat", 44: "hihat",
	46: "openhat",
	41: "tom", 43: "tom", 45: "tom", 47: "tom", 48: "tom", 50: "tom",
	56: "cowbell",
}

// DefaultCC maps controller numbers to mix controls.
var DefaultCC = map[uint8]string{
	1:  "cutoff",
	7:  "master",
	71: "resonance",
	74: "cutoff",
	91: "reverb.mix",
	93: "chorus.mix",
	94: "delay.mix",
}

// MIDI turns incoming MIDI messages into commands.
type MIDI struct {
	ctl    Executor
	log    *log.Logger
	cc     map[uint8]string
	params map[string]audio.ParamInfo
}

// Executor runs a command.
type Executor interface {
	Exec(cmd mk1.Command) (any, error)
}

// NewMIDI builds a bridge. params supplies the ranges CC values are
// scaled into; cc nil means DefaultCC.
func NewMIDI(ctl Executor, params []audio.ParamInfo, cc map[uint8]string, logger *log.Logger) *MIDI {
	if cc == nil {
		cc = DefaultCC
	}
	if logger == nil {
		logger = log.Discard()
	}
	m := &MIDI{ctl: ctl, log: logger.With("midi"), cc: cc, params: map[string]audio.ParamInfo{}}
	for _, p := range params {
		m.params[p.Name] = p
	}
	return m
}

// Command maps one message; ok is false for messages that are ignored.
func (m *MIDI) Command(msg midi.Message) (mk1.Command, bool) {
	var ch, key, vel, cc, val uint8
	cmd := mk1.Command{Source: looper.SourceMIDI}
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		v := float64(vel) / 127
		if ch == DrumChannel {
			id, ok := GMDrums[key]
			if !ok {
				return cmd, false
			}
			cmd.Action = "drum"
			cmd.Args.ID = id
		} else {
			cmd.Action = "note_on"
			cmd.Args.Note = int(key)
		}
		cmd.Args.Velocity = mk1.Vel(v)
	case msg.GetNoteEnd(&ch, &key):
		if ch == DrumChannel {
			return cmd, false
		}
		cmd.Action = "note_off"
		cmd.Args.Note = int(key)
	case msg.GetControlChange(&ch, &cc, &val):
		name, ok := m.cc[cc]
		if !ok {
			return cmd, false
		}
		p, ok := m.params[name]
		if !ok {
			return cmd, false
		}
		cmd.Action = "fx"
		cmd.Args.ID = name
		cmd.Args.Value = scaleCC(val, p)
	default:
		return cmd, false
	}
	return cmd, true
}

// scaleCC maps 0..127 onto the control's range, exponentially for wide
// positive ranges such as cutoff.
func scaleCC(val uint8, p audio.ParamInfo) float64 {
	t := float64(val) / 127
	if p.Min > 0 && p.Max/p.Min >= 100 {
		return p.Min * math.Pow(p.Max/p.Min, t)
	}
	return p.Min + (p.Max-p.Min)*t
}

// Handle executes msg if it maps to a command.
func (m *MIDI) Handle(msg midi.Message) {
	cmd, ok := m.Command(msg)
	if !ok {
		return
	}
	if _, err := m.ctl.Exec(cmd); err != nil {
		m.log.Warnf("%s: %v", msg, err)
	}
}

// Ports lists the available MIDI inputs.
func Ports() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// Listen opens the named input port and handles its messages until ctx
// is done.
func (m *MIDI) Listen(ctx context.Context, port string) error {
	in, err := midi.FindInPort(port)
	if err != nil {
		return err
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		m.Handle(msg)
	}, midi.HandleError(func(err error) {
		m.log.Warnf("listener on %s: %v", port, err)
	}))
	if err != nil {
		return err
	}
	m.log.Infof("listening on %s", in)
	<-ctx.Done()
	stop()
	return in.Close()
}
