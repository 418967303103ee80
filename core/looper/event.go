package looper

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindDrum Kind = "drum"
	KindNote Kind = "note"
)

// Sources tag where a trigger came from.
const (
	SourceLive      = "live"
	SourceSequencer = "sequencer"
	SourceMIDI      = "midi"
	SourceOSC       = "osc"
	SourceLoop      = "loop"
)

// Event is one recorded trigger.
type Event struct {
	Offset   time.Duration `json:"offset"`
	Kind     Kind          `json:"kind"`
	ID       string        `json:"id,omitempty"`
	Note     int           `json:"note,omitempty"`
	Velocity float64       `json:"velocity"`
	Duration time.Duration `json:"duration,omitempty"`
	Source   string        `json:"source,omitempty"`
	Pass     int           `json:"pass"`

	// cycle the event was overdubbed in; it already sounded live then.
	cycle int64
}

type State int

const (
	Empty State = iota
	Recording
	Playing
	Overdubbing
	Stopped
)

var stateNames = [...]string{"empty", "recording", "playing", "overdubbing", "stopped"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown looper state %q", b)
}

// Slots names the looper slots in order.
var Slots = []string{"A", "B", "C", "D"}

// ParseSlot maps a slot name (case-insensitive) to its index.
func ParseSlot(name string) (int, error) {
	for i, s := range Slots {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("slot %q: %w", name, ErrUnknownSlot)
}
