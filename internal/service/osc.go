package service

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/hypebeast/go-osc/osc"

	"github.com/ingyamilmolinar/mk1/core/looper"
	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// OSCPrefix is prepended to every address the OSC server answers.
const OSCPrefix = "/mk1/"

// oscAddresses maps an address suffix to its argument signature.
var oscAddresses = map[string]string{
	"drum":     "sf",
	"note":     "iff",
	"seq":      "s",
	"bpm":      "f",
	"swing":    "f",
	"step":     "ii",
	"fx":       "sf",
	"synth":    "sf",
	"loop":     "ss",
	"quantize": "f",
	"dwell":    "ff",
}

// OSC receives commands as OSC messages under /mk1/.
type OSC struct {
	ctl        Controller
	log        *log.Logger
	dispatcher *osc.StandardDispatcher
}

func NewOSC(ctl Controller, logger *log.Logger) *OSC {
	if logger == nil {
		logger = log.Discard()
	}
	o := &OSC{ctl: ctl, log: logger.With("osc"), dispatcher: osc.NewStandardDispatcher()}
	for name := range oscAddresses {
		addr := OSCPrefix + name
		if err := o.dispatcher.AddMsgHandler(addr, o.handle); err != nil {
			o.log.Errorf("register %s: %v", addr, err)
		}
	}
	return o
}

// Dispatch runs one packet through the handlers, as the server would.
func (o *OSC) Dispatch(p osc.Packet) { o.dispatcher.Dispatch(p) }

// ListenAndServe reads UDP packets on addr until ctx is done.
func (o *OSC) ListenAndServe(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	o.log.Infof("listening on %s", conn.LocalAddr())
	server := &osc.Server{Addr: addr, Dispatcher: o.dispatcher}
	err = server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (o *OSC) handle(msg *osc.Message) {
	cmd, err := oscCommand(msg)
	if err != nil {
		o.log.Warnf("%s: %v", msg.Address, err)
		return
	}
	if _, err := o.ctl.Exec(cmd); err != nil {
		o.log.Warnf("%s: %v", msg.Address, err)
	}
}

// oscCommand converts a message to a Command. Trailing numeric arguments
// may be omitted; velocity defaults to 1.
func oscCommand(msg *osc.Message) (mk1.Command, error) {
	name := strings.TrimPrefix(msg.Address, OSCPrefix)
	sig, ok := oscAddresses[name]
	if !ok {
		return mk1.Command{}, fmt.Errorf("%s: %w", msg.Address, mk1.ErrUnknownAction)
	}
	args := msg.Arguments
	str := func(i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("%s: missing argument %d: %w", msg.Address, i, mk1.ErrBadArgs)
		}
		s, ok := args[i].(string)
		if !ok {
			return "", fmt.Errorf("%s: argument %d is %T, want string: %w", msg.Address, i, args[i], mk1.ErrBadArgs)
		}
		return s, nil
	}
	number := func(i int) (float64, bool, error) {
		if i >= len(args) {
			return 0, false, nil
		}
		v, ok := num(args[i])
		if !ok {
			return 0, false, fmt.Errorf("%s: argument %d is %T, want number: %w", msg.Address, i, args[i], mk1.ErrBadArgs)
		}
		if !utils.Finite(v) {
			return 0, false, fmt.Errorf("%s: argument %d is %v: %w", msg.Address, i, v, mk1.ErrBadArgs)
		}
		return v, true, nil
	}
	required := len(sig)
	if name == "drum" || name == "note" {
		required = 1
	}
	if len(args) < required {
		return mk1.Command{}, fmt.Errorf("%s: want %d arguments (%s), got %d: %w", msg.Address, required, sig, len(args), mk1.ErrBadArgs)
	}

	cmd := mk1.Command{Action: name, Source: looper.SourceOSC}
	a := &cmd.Args
	var err error
	switch name {
	case "drum":
		if a.ID, err = str(0); err != nil {
			return cmd, err
		}
		if v, ok, err := number(1); err != nil {
			return cmd, err
		} else if ok {
			a.Velocity = mk1.Vel(v)
		}
	case "note":
		n, _, err := number(0)
		if err != nil {
			return cmd, err
		}
		a.Note = int(n)
		if v, ok, err := number(1); err != nil {
			return cmd, err
		} else if ok {
			a.Velocity = mk1.Vel(v)
		}
		if a.Duration, _, err = number(2); err != nil {
			return cmd, err
		}
	case "seq":
		a.Op, err = str(0)
	case "bpm", "swing", "quantize":
		a.Value, _, err = number(0)
	case "step":
		var t, s float64
		if t, _, err = number(0); err == nil {
			s, _, err = number(1)
		}
		a.Track, a.Step = int(t), int(s)
	case "fx", "synth":
		if a.ID, err = str(0); err == nil {
			a.Value, _, err = number(1)
		}
	case "loop":
		if a.Slot, err = str(0); err == nil {
			a.Op, err = str(1)
		}
	case "dwell":
		if a.X, _, err = number(0); err == nil {
			a.Y, _, err = number(1)
		}
	}
	return cmd, err
}
