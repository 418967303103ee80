package preset

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ingyamilmolinar/mk1/core/beat"
	"github.com/ingyamilmolinar/mk1/core/model"
)

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidName = errors.New("invalid preset name")
	ErrBuiltin     = errors.New("built-in preset is read-only")
)

// Preset is a named snapshot of the groove and the mix.
type Preset struct {
	Name    string             `yaml:"name" json:"name"`
	BPM     int                `yaml:"bpm" json:"bpm"`
	Swing   float64            `yaml:"swing,omitempty" json:"swing,omitempty"`
	Pattern []string           `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Volumes []float64          `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	FX      map[string]float64 `yaml:"fx,omitempty" json:"fx,omitempty"`
	Synth   map[string]float64 `yaml:"synth,omitempty" json:"synth,omitempty"`
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

func ValidName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Validate checks the name, tempo and pattern.
func (p Preset) Validate() error {
	if err := ValidName(p.Name); err != nil {
		return err
	}
	if p.BPM != 0 && (p.BPM < beat.MinBPM || p.BPM > beat.MaxBPM) {
		return fmt.Errorf("preset %s: bpm %d outside %d..%d", p.Name, p.BPM, beat.MinBPM, beat.MaxBPM)
	}
	if p.Swing < 0 || p.Swing > beat.MaxSwing {
		return fmt.Errorf("preset %s: swing %.2f outside 0..%.1f", p.Name, p.Swing, beat.MaxSwing)
	}
	if len(p.Volumes) > model.Tracks {
		return fmt.Errorf("preset %s: %d volumes for %d tracks", p.Name, len(p.Volumes), model.Tracks)
	}
	if _, err := p.Grid(); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return nil
}

// Grid parses the pattern rows and applies the track volumes.
func (p Preset) Grid() (*model.Pattern, error) {
	g, err := model.ParseRows(p.Pattern)
	if err != nil {
		return nil, err
	}
	for t, v := range p.Volumes {
		if err := g.SetVolume(t, v); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Builtins are always available and cannot be deleted.
var Builtins = []Preset{
	{
		Name:  "four-on-the-floor",
		BPM:   124,
		Swing: 0,
		Pattern: []string{
			"x...x...x...x...",
			"....x.......x...",
			"..x...x...x...x.",
			"................",
			"................",
			"................",
			"................",
			"...............x",
		},
		FX: map[string]float64{"reverb.mix": 0.15, "delay.mix": 0.1},
	},
	{
		Name:  "boom-bap",
		BPM:   90,
		Swing: 0.18,
		Pattern: []string{
			"x......x..x.....",
			"....x.......x...",
			"x.x.x.x.x.x.x.x.",
			"................",
			"............x...",
			"................",
			"..............x.",
		},
		FX:    map[string]float64{"crush.bits": 10, "cutoff": 7000},
		Synth: map[string]float64{"wave": 3, "release": 0.5},
	},
	{
		Name:  "dub",
		BPM:   72,
		Swing: 0.1,
		Pattern: []string{
			"x.........x.....",
			"........x.......",
			"................",
			"..x.......x.....",
			"................",
			"......x.........",
			"...x............",
			"..........x.....",
		},
		FX: map[string]float64{"delay.mix": 0.5, "delay.feedback": 0.7, "delay.time": 0.5, "reverb.mix": 0.4, "cutoff": 3500},
	},
}

func builtin(name string) (Preset, bool) {
	for _, p := range Builtins {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
