package mk1

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// Command is one decoded facade request, the body of POST /cmd and the
// result of ParseLine.
type Command struct {
	Action string `json:"action"`
	Args   Args   `json:"args"`
	Source string `json:"source,omitempty"`
}

// Args holds the union of every action's arguments.
type Args struct {
	ID       string   `json:"id,omitempty"`   // drum, fx or synth param, preset
	Op       string   `json:"op,omitempty"`   // seq, loop, dwell and preset sub-command
	Slot     string   `json:"slot,omitempty"` // looper slot
	Note     int      `json:"note,omitempty"`
	Velocity *float64 `json:"velocity,omitempty"`
	Duration float64  `json:"duration,omitempty"` // seconds
	Value    float64  `json:"value,omitempty"`
	Track    int      `json:"track,omitempty"`
	Step     int      `json:"step,omitempty"`
	X        float64  `json:"x,omitempty"`
	Y        float64  `json:"y,omitempty"`
}

func (a Args) vel() float64 {
	if a.Velocity == nil {
		return 1
	}
	return *a.Velocity
}

// check rejects NaN and infinite numbers before they reach the audio core.
func (a Args) check() error {
	for name, v := range map[string]float64{
		"velocity": a.vel(), "duration": a.Duration, "value": a.Value, "x": a.X, "y": a.Y,
	} {
		if !utils.Finite(v) {
			return fmt.Errorf("%s %v: %w", name, v, ErrBadArgs)
		}
	}
	return nil
}

// Vel returns a pointer for Args.Velocity.
func Vel(v float64) *float64 { return &v }

// Actions lists every command understood by Exec.
var Actions = []string{
	"drum", "note", "note_on", "note_off", "seq", "bpm", "swing", "step",
	"clear", "volume", "mute", "fx", "synth", "loop", "quantize", "dwell", "preset", "status",
}

// Exec runs cmd and returns its result: the Status for "status", the new
// state for toggles, otherwise "ok".
func (c *Controller) Exec(cmd Command) (any, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, cmdErr(cmd.Action, ErrRateLimited)
	}
	src := cmd.Source
	if src == "" {
		src = looper.SourceLive
	}
	a := cmd.Args
	if err := a.check(); err != nil {
		return nil, cmdErr(cmd.Action, err)
	}
	c.log.Debug("exec", "action", cmd.Action, "source", src)
	switch cmd.Action {
	case "drum":
		return ok(c.DrumFrom(src, a.ID, a.vel()))
	case "note":
		dur := a.Duration
		if dur <= 0 {
			dur = 0.25
		}
		return ok(c.NoteFrom(src, a.Note, a.vel(), dur))
	case "note_on":
		return ok(c.NoteOn(a.Note, a.vel()))
	case "note_off":
		return ok(c.NoteOffFrom(src, a.Note))
	case "seq":
		switch a.Op {
		case "start":
			c.SeqStart()
		case "stop":
			c.SeqStop()
		case "toggle":
			return map[string]bool{"playing": c.SeqToggle()}, nil
		default:
			return nil, cmdErr("seq", fmt.Errorf("op %q: %w", a.Op, ErrBadArgs))
		}
		return "ok", nil
	case "bpm":
		return map[string]int{"bpm": c.SetBPM(int(a.Value))}, nil
	case "swing":
		c.SetSwing(a.Value)
		return "ok", nil
	case "step":
		on, err := c.ToggleStep(a.Track, a.Step)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"on": on}, nil
	case "clear":
		c.ClearPattern()
		return "ok", nil
	case "volume":
		return ok(c.SetTrackVolume(a.Track, a.Value))
	case "mute":
		return ok(c.SetMute(a.Track, a.Value != 0))
	case "fx":
		return ok(c.FX(a.ID, a.Value))
	case "synth":
		return ok(c.Synth(a.ID, a.Value))
	case "loop":
		return ok(c.Loop(a.Slot, a.Op))
	case "quantize":
		c.SetQuantize(a.Value != 0)
		return "ok", nil
	case "dwell":
		switch a.Op {
		case "start":
			c.DwellStart()
		case "stop":
			c.DwellStop()
		case "", "move":
			c.Dwell(a.X, a.Y)
		default:
			return nil, cmdErr("dwell", fmt.Errorf("op %q: %w", a.Op, ErrBadArgs))
		}
		return "ok", nil
	case "preset":
		switch a.Op {
		case "load", "":
			return ok(c.ApplyPreset(a.ID))
		case "save":
			return ok(c.SavePreset(a.ID))
		}
		return nil, cmdErr("preset", fmt.Errorf("op %q: %w", a.Op, ErrBadArgs))
	case "status":
		return c.Status(), nil
	}
	return nil, cmdErr(cmd.Action, ErrUnknownAction)
}

func ok(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return "ok", nil
}

// ParseLine parses the text form of a command, e.g. "drum kick 0.8",
// "fx cutoff 1200", "seq start" or "loop A rec".
func ParseLine(line string) (Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, cmdErr("parse", fmt.Errorf("empty line: %w", ErrBadArgs))
	}
	action := strings.ToLower(f[0])
	args := f[1:]
	bad := func(format string, v ...any) (Command, error) {
		return Command{}, cmdErr(action, fmt.Errorf(format+": %w", append(v, ErrBadArgs)...))
	}
	need := func(n int) bool { return len(args) >= n }
	cmd := Command{Action: action}
	a := &cmd.Args

	switch action {
	case "drum":
		if !need(1) {
			return bad("usage: drum <id> [velocity]")
		}
		a.ID = args[0]
		if need(2) {
			v, err := parseFloat(args[1])
			if err != nil {
				return bad("velocity %q", args[1])
			}
			a.Velocity = Vel(v)
		}
	case "note", "noteon", "note_on", "noteoff", "note_off":
		action = strings.Replace(action, "noteo", "note_o", 1)
		cmd.Action = action
		if !need(1) {
			return bad("usage: %s <midi> [velocity] [duration]", action)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return bad("note %q", args[0])
		}
		a.Note = n
		if need(2) {
			v, err := parseFloat(args[1])
			if err != nil {
				return bad("velocity %q", args[1])
			}
			a.Velocity = Vel(v)
		}
		if need(3) {
			d, err := parseFloat(args[2])
			if err != nil {
				return bad("duration %q", args[2])
			}
			a.Duration = d
		}
	case "seq":
		if !need(1) {
			return bad("usage: seq start|stop|toggle")
		}
		a.Op = strings.ToLower(args[0])
	case "bpm", "swing":
		if !need(1) {
			return bad("usage: %s <value>", action)
		}
		v, err := parseFloat(args[0])
		if err != nil {
			return bad("value %q", args[0])
		}
		a.Value = v
	case "step":
		if !need(2) {
			return bad("usage: step <track> <step>")
		}
		tr, err1 := trackIndex(args[0])
		st, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return bad("step %q %q", args[0], args[1])
		}
		a.Track, a.Step = tr, st
	case "volume", "mute":
		if !need(2) {
			return bad("usage: %s <track> <value>", action)
		}
		tr, err1 := trackIndex(args[0])
		v, err2 := parseValue(args[1])
		if err1 != nil || err2 != nil {
			return bad("%s %q %q", action, args[0], args[1])
		}
		a.Track, a.Value = tr, v
	case "clear", "status":
	case "quantize":
		if !need(1) {
			return bad("usage: quantize on|off")
		}
		v, err := parseValue(args[0])
		if err != nil {
			return bad("value %q", args[0])
		}
		a.Value = v
	case "fx", "synth":
		if !need(2) {
			return bad("usage: %s <name> <value>", action)
		}
		a.ID = args[0]
		v, err := parseValue(args[1])
		if action == "synth" && a.ID == "wave" && err != nil {
			var w audio.Waveform
			w, err = audio.ParseWaveform(args[1])
			v = float64(w)
		}
		if err != nil {
			return bad("value %q", args[1])
		}
		a.Value = v
	case "loop":
		if !need(2) {
			return bad("usage: loop <slot>|all rec|stop|play|clear|undo")
		}
		a.Slot, a.Op = strings.ToUpper(args[0]), strings.ToLower(args[1])
	case "dwell":
		if !need(1) {
			return bad("usage: dwell <x> <y> | dwell start|stop")
		}
		if op := strings.ToLower(args[0]); op == "start" || op == "stop" {
			a.Op = op
			break
		}
		if !need(2) {
			return bad("usage: dwell <x> <y>")
		}
		x, err1 := parseFloat(args[0])
		y, err2 := parseFloat(args[1])
		if err1 != nil || err2 != nil {
			return bad("position %q %q", args[0], args[1])
		}
		a.X, a.Y = x, y
	case "preset":
		if !need(2) {
			return bad("usage: preset load|save <name>")
		}
		a.Op, a.ID = strings.ToLower(args[0]), args[1]
	default:
		return Command{}, cmdErr(action, ErrUnknownAction)
	}
	return cmd, nil
}

// trackIndex accepts a track number or a drum name.
func trackIndex(s string) (int, error) {
	for i, d := range audio.Drums {
		if strings.EqualFold(d, s) {
			return i, nil
		}
	}
	return strconv.Atoi(s)
}

func parseValue(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return 1, nil
	case "off", "false", "no":
		return 0, nil
	}
	return parseFloat(s)
}

// parseFloat is strconv.ParseFloat limited to finite numbers.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !utils.Finite(v) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}
