package audio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// ParamInfo describes one named mix control.
type ParamInfo struct {
	Name    string  `json:"name" yaml:"name"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
}

const (
	pMaster = iota
	pDrive
	pCrushBits
	pCrushRate
	pCutoff
	pResonance
	pChorusMix
	pChorusRate
	pChorusDepth
	pDelayMix
	pDelayTime
	pDelayFeedback
	pReverbMix
	pReverbSize
	pReverbDamp
	numParams
)

var paramTable = [numParams]ParamInfo{
	pMaster:        {"master", 0, 1, 0.8},
	pDrive:         {"drive", 0, 1, 0},
	pCrushBits:     {"crush.bits", 1, 16, 16},
	pCrushRate:     {"crush.rate", 1, 32, 1},
	pCutoff:        {"cutoff", 40, 18000, 18000},
	pResonance:     {"resonance", 0.1, 20, 0.707},
	pChorusMix:     {"chorus.mix", 0, 1, 0},
	pChorusRate:    {"chorus.rate", 0.05, 5, 0.8},
	pChorusDepth:   {"chorus.depth", 0, 1, 0.5},
	pDelayMix:      {"delay.mix", 0, 1, 0.2},
	pDelayTime:     {"delay.time", 0.01, 2, 0.375},
	pDelayFeedback: {"delay.feedback", 0, 0.95, 0.35},
	pReverbMix:     {"reverb.mix", 0, 1, 0.25},
	pReverbSize:    {"reverb.size", 0, 0.98, 0.7},
	pReverbDamp:    {"reverb.damp", 0, 1, 0.4},
}

var paramIndex = func() map[string]int {
	m := make(map[string]int, numParams)
	for i, p := range paramTable {
		m[p.Name] = i
	}
	return m
}()

// ParamTime is the smoothing time constant for mix changes.
const ParamTime = 0.01

// Graph is the fixed effects chain every voice is mixed into. It is not safe
// for concurrent use; Engine serialises access.
type Graph struct {
	sr     float64
	coeff  float64
	target [numParams]float64
	cur    [numParams]float64

	crush  crusher
	filter biquad
	chorus *chorus
	delay  *feedbackDelay
	reverb *reverb
}

// NewGraph builds the chain for the given sample rate with default params.
func NewGraph(sampleRate int) *Graph {
	sr := float64(sampleRate)
	g := &Graph{
		sr:     sr,
		coeff:  utils.SmoothCoeff(ParamTime, sr),
		chorus: newChorus(sr),
		delay:  newFeedbackDelay(sr, paramTable[pDelayTime].Max),
		reverb: newReverb(sr),
	}
	for i, p := range paramTable {
		g.target[i] = p.Default
		g.cur[i] = p.Default
	}
	return g
}

// Params lists the controls in stable order.
func (g *Graph) Params() []ParamInfo {
	return append([]ParamInfo(nil), paramTable[:]...)
}

// SetParam sets the target of a control; the audible value glides to it.
func (g *Graph) SetParam(name string, v float64) error {
	i, ok := paramIndex[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownParam)
	}
	if !utils.Finite(v) {
		return fmt.Errorf("%q = %v: %w", name, v, ErrBadValue)
	}
	p := paramTable[i]
	g.target[i] = utils.Clamp(v, p.Min, p.Max)
	return nil
}

// Param returns the target value of a control.
func (g *Graph) Param(name string) (float64, error) {
	i, ok := paramIndex[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownParam)
	}
	return g.target[i], nil
}

// Snapshot returns every control's target value.
func (g *Graph) Snapshot() map[string]float64 {
	m := make(map[string]float64, numParams)
	for i, p := range paramTable {
		m[p.Name] = g.target[i]
	}
	return m
}

// Apply sets several controls at once. Unknown names and non-finite values
// are reported after the valid ones have been applied.
func (g *Graph) Apply(values map[string]float64) error {
	var unknown, bad []string
	for name, v := range values {
		if err := g.SetParam(name, v); err != nil {
			if errors.Is(err, ErrBadValue) {
				bad = append(bad, name)
			} else {
				unknown = append(unknown, name)
			}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%v: %w", unknown, ErrUnknownParam)
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%v: %w", bad, ErrBadValue)
	}
	return nil
}

// Reset clears all delay lines and filter state. Params are kept.
func (g *Graph) Reset() {
	g.crush.reset()
	g.filter.reset()
	g.chorus.reset()
	g.delay.reset()
	g.reverb.reset()
	g.cur = g.target
}

// Process runs one stereo frame through the chain.
func (g *Graph) Process(l, r float64) (float64, float64) {
	for i := range g.cur {
		g.cur[i] += (g.target[i] - g.cur[i]) * g.coeff
	}
	c := &g.cur

	l = distortion(l, c[pDrive])
	r = distortion(r, c[pDrive])

	l, r = g.crush.process(l, r, c[pCrushBits], c[pCrushRate])

	g.filter.design(g.sr, c[pCutoff], c[pResonance])
	l = g.filter.process(0, l)
	r = g.filter.process(1, r)

	l, r = g.chorus.process(l, r, c[pChorusMix], c[pChorusRate], c[pChorusDepth])

	dl, dr := g.delay.process(l*c[pDelayMix], r*c[pDelayMix], c[pDelayTime], c[pDelayFeedback])
	rl, rr := g.reverb.process(l*c[pReverbMix], r*c[pReverbMix], c[pReverbSize], c[pReverbDamp])

	m := c[pMaster]
	l = limit((l + dl + rl*3) * m)
	r = limit((r + dr + rr*3) * m)
	return l, r
}
