package ui

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/ingyamilmolinar/mk1/core/dwell"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

type fakeController struct {
	calls   []string
	playing bool
	running bool
	fx      map[string]float64
}

func (f *fakeController) Dwell(x, y float64) { f.calls = append(f.calls, fmt.Sprintf("dwell %.2f %.2f", x, y)) }
func (f *fakeController) DwellStart()        { f.running = true; f.calls = append(f.calls, "start") }
func (f *fakeController) DwellStop()         { f.running = false; f.calls = append(f.calls, "stop") }

func (f *fakeController) Drum(id string, _ float64) error {
	f.calls = append(f.calls, "drum "+id)
	return nil
}

func (f *fakeController) SeqToggle() bool {
	f.playing = !f.playing
	f.calls = append(f.calls, "toggle")
	return f.playing
}

func (f *fakeController) FX(name string, v float64) error {
	if f.fx == nil {
		f.fx = map[string]float64{}
	}
	f.fx[name] = v
	return nil
}

func (f *fakeController) Status() mk1.Status {
	return mk1.Status{Playing: f.playing, Dwell: dwell.Params{Running: f.running}}
}

// input is the state fed to the pad for one frame.
type input struct {
	x, y    int
	pressed bool
	wheel   float64
	keys    map[ebiten.Key]bool
}

func step(t *testing.T, p *Pad, in input) {
	t.Helper()
	restore := SetInputForTest(Input{
		Cursor: func() (int, int) { return in.x, in.y },
		Mouse:  func(b ebiten.MouseButton) bool { return in.pressed && b == ebiten.MouseButtonLeft },
		Key:    func(k ebiten.Key) bool { return in.keys[k] },
		Wheel:  func() (float64, float64) { return 0, in.wheel },
	})
	defer restore()
	if err := p.Update(); err != nil {
		t.Fatal(err)
	}
}

func newTestPad() (*Pad, *fakeController) {
	f := &fakeController{}
	return NewPad(f, nil, 640, 480), f
}

func TestCursorDrivesDwell(t *testing.T) {
	p, f := newTestPad()
	a := p.area()
	step(t, p, input{x: a.Min.X, y: a.Max.Y - 1})
	step(t, p, input{x: a.Min.X, y: a.Max.Y - 1})
	step(t, p, input{x: a.Max.X - 1, y: a.Min.Y})
	want := []string{"dwell 0.00 0.00", "dwell 1.00 1.00"}
	if fmt.Sprint(f.calls) != fmt.Sprint(want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	// outside the surface the cursor is ignored
	f.calls = nil
	step(t, p, input{x: 5, y: 5})
	if len(f.calls) != 0 {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestPadCoordsRoundTrip(t *testing.T) {
	p, _ := newTestPad()
	a := p.area()
	x, y := p.padCoords(a.Min.X+a.Dx()/2, a.Min.Y+a.Dy()/4)
	sx, sy := p.toScreen(x, y)
	if int(sx+0.5) != a.Min.X+a.Dx()/2 || int(sy+0.5) != a.Min.Y+a.Dy()/4 {
		t.Fatalf("round trip = %.1f, %.1f", sx, sy)
	}
}

func TestNumberKeysPlayDrums(t *testing.T) {
	p, f := newTestPad()
	one := map[ebiten.Key]bool{ebiten.KeyDigit1: true}
	step(t, p, input{keys: one})
	step(t, p, input{keys: one})
	step(t, p, input{})
	step(t, p, input{keys: map[ebiten.Key]bool{ebiten.KeyDigit2: true, ebiten.KeyDigit8: true}})
	want := []string{"drum kick", "drum snare", "drum cowbell"}
	if fmt.Sprint(f.calls) != fmt.Sprint(want) {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if p.flashes[0] == 0 && p.flashes[1] == 0 {
		t.Fatal("pads did not flash")
	}
}

func TestDrumRowClick(t *testing.T) {
	p, f := newTestPad()
	r := p.drums[4].Rect
	step(t, p, input{x: r.Min.X + 2, y: r.Min.Y + 2, pressed: true})
	step(t, p, input{x: r.Min.X + 2, y: r.Min.Y + 2, pressed: true})
	if fmt.Sprint(f.calls) != "[drum clap]" {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestSpaceAndEnterToggle(t *testing.T) {
	p, f := newTestPad()
	space := map[ebiten.Key]bool{ebiten.KeySpace: true}
	step(t, p, input{keys: space})
	step(t, p, input{keys: space})
	if !f.running || !p.dwellOn {
		t.Fatal("space did not start dwell")
	}
	step(t, p, input{})
	step(t, p, input{keys: space})
	if f.running {
		t.Fatal("second space did not stop dwell")
	}
	step(t, p, input{keys: map[ebiten.Key]bool{ebiten.KeyEnter: true}})
	if !f.playing || !p.playing {
		t.Fatal("enter did not start the sequencer")
	}
}

func TestButtonsAndSliders(t *testing.T) {
	p, f := newTestPad()
	pr := p.play.Rect
	step(t, p, input{x: pr.Min.X + 1, y: pr.Min.Y + 1, pressed: true})
	step(t, p, input{})
	if !f.playing || p.play.Label != "stop" {
		t.Fatalf("play button: playing=%v label=%q", f.playing, p.play.Label)
	}

	dr := p.dwell.Rect
	step(t, p, input{x: dr.Min.X + 1, y: dr.Min.Y + 1, pressed: true})
	step(t, p, input{})
	if !f.running {
		t.Fatal("dwell button did not start dwell")
	}

	mr := p.master.Rect()
	step(t, p, input{x: mr.Max.X - 1, y: mr.Min.Y + 1, pressed: true})
	if got := f.fx["master"]; got != 1 {
		t.Fatalf("master = %v, want 1", got)
	}
	// dragging the slider down into the surface must not move the dwell
	f.calls = nil
	step(t, p, input{x: mr.Min.X, y: 200, pressed: true})
	for _, c := range f.calls {
		if strings.HasPrefix(c, "dwell") {
			t.Fatalf("slider drag leaked into dwell: %v", f.calls)
		}
	}
	if got := f.fx["master"]; got != 0 {
		t.Fatalf("master = %v, want 0", got)
	}
}

func TestWheelNudgesSlider(t *testing.T) {
	p, f := newTestPad()
	rr := p.reverb.Rect()
	start := p.reverb.Value
	step(t, p, input{x: rr.Min.X + 5, y: rr.Min.Y + 1, wheel: 2})
	if got, want := f.fx["reverb.mix"], start+2*wheelStep; math.Abs(got-want) > 1e-9 {
		t.Fatalf("reverb.mix = %v, want %v", got, want)
	}
	// wheel over the surface does nothing
	delete(f.fx, "reverb.mix")
	step(t, p, input{x: 100, y: 200, wheel: 1})
	if _, ok := f.fx["reverb.mix"]; ok {
		t.Fatal("wheel outside a slider changed the mix")
	}
}

func TestStatusPolling(t *testing.T) {
	p, f := newTestPad()
	f.playing = true
	for range statusEvery {
		step(t, p, input{})
	}
	if !p.playing || p.play.Label != "stop" {
		t.Fatal("pad did not pick up transport state from status")
	}
}
