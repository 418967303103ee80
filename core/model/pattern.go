package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	Steps  = 16
	Tracks = 8
)

var ErrOutOfRange = errors.New("track or step out of range")

// Pattern is the drum grid: Tracks rows of Steps cells plus a volume and
// mute flag per track. It is safe for concurrent use.
type Pattern struct {
	mu     sync.RWMutex
	cells  [Tracks][Steps]bool
	volume [Tracks]float64
	mute   [Tracks]bool
}

func NewPattern() *Pattern {
	p := &Pattern{}
	for i := range p.volume {
		p.volume[i] = 1
	}
	return p
}

func check(track, step int) error {
	if track < 0 || track >= Tracks || step < 0 || step >= Steps {
		return fmt.Errorf("track %d step %d: %w", track, step, ErrOutOfRange)
	}
	return nil
}

// Toggle flips a cell and returns its new state.
func (p *Pattern) Toggle(track, step int) (bool, error) {
	if err := check(track, step); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cells[track][step] = !p.cells[track][step]
	return p.cells[track][step], nil
}

func (p *Pattern) Set(track, step int, on bool) error {
	if err := check(track, step); err != nil {
		return err
	}
	p.mu.Lock()
	p.cells[track][step] = on
	p.mu.Unlock()
	return nil
}

func (p *Pattern) Get(track, step int) bool {
	if check(track, step) != nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cells[track][step]
}

// Clear empties every cell. Volumes and mutes are kept.
func (p *Pattern) Clear() {
	p.mu.Lock()
	p.cells = [Tracks][Steps]bool{}
	p.mu.Unlock()
}

func (p *Pattern) ClearTrack(track int) error {
	if err := check(track, 0); err != nil {
		return err
	}
	p.mu.Lock()
	p.cells[track] = [Steps]bool{}
	p.mu.Unlock()
	return nil
}

// Active returns the unmuted tracks that fire on step, in track order.
func (p *Pattern) Active(step int) []int {
	step = ((step % Steps) + Steps) % Steps
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []int
	for t := 0; t < Tracks; t++ {
		if p.cells[t][step] && !p.mute[t] {
			out = append(out, t)
		}
	}
	return out
}

func (p *Pattern) SetVolume(track int, v float64) error {
	if err := check(track, 0); err != nil {
		return err
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.mu.Lock()
	p.volume[track] = v
	p.mu.Unlock()
	return nil
}

func (p *Pattern) Volume(track int) float64 {
	if check(track, 0) != nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume[track]
}

func (p *Pattern) SetMute(track int, muted bool) error {
	if err := check(track, 0); err != nil {
		return err
	}
	p.mu.Lock()
	p.mute[track] = muted
	p.mu.Unlock()
	return nil
}

func (p *Pattern) Muted(track int) bool {
	if check(track, 0) != nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mute[track]
}

// Rows renders each track as a string of 'x' (on) and '.' (off).
func (p *Pattern) Rows() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := make([]string, Tracks)
	var b strings.Builder
	for t := range p.cells {
		b.Reset()
		for _, on := range p.cells[t] {
			if on {
				b.WriteByte('x')
			} else {
				b.WriteByte('.')
			}
		}
		rows[t] = b.String()
	}
	return rows
}

// String is the grid form accepted by ParsePattern.
func (p *Pattern) String() string {
	return strings.Join(p.Rows(), "\n")
}

// CopyFrom replaces cells, volumes and mutes with those of src.
func (p *Pattern) CopyFrom(src *Pattern) {
	if p == src {
		return
	}
	src.mu.RLock()
	cells, vol, mute := src.cells, src.volume, src.mute
	src.mu.RUnlock()
	p.mu.Lock()
	p.cells, p.volume, p.mute = cells, vol, mute
	p.mu.Unlock()
}

// ParsePattern reads up to Tracks rows of Steps cells. 'x', 'X' and '1'
// mark a hit, '.', '-' and '0' a rest; spaces and '|' are ignored so rows
// can be grouped by beat. Missing rows are empty.
func ParsePattern(s string) (*Pattern, error) {
	var rows []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	return ParseRows(rows)
}

// ParseRows is ParsePattern for pre-split rows.
func ParseRows(rows []string) (*Pattern, error) {
	if len(rows) > Tracks {
		return nil, fmt.Errorf("pattern has %d rows, max %d", len(rows), Tracks)
	}
	p := NewPattern()
	for t, row := range rows {
		step := 0
		for _, c := range row {
			switch c {
			case ' ', '\t', '|', '\r':
				continue
			case 'x', 'X', '1':
				if step < Steps {
					p.cells[t][step] = true
				}
			case '.', '-', '0':
			default:
				return nil, fmt.Errorf("row %d: unexpected %q", t+1, c)
			}
			step++
		}
		if step != Steps {
			return nil, fmt.Errorf("row %d has %d steps, want %d", t+1, step, Steps)
		}
	}
	return p, nil
}
