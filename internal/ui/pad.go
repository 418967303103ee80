// Package ui is the desktop dwell pad: the cursor steers the dwell layer
// and the number keys play the drum pads.
package ui

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/log"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

const (
	topOffset    = 40 // transport-bar height in px
	padRowHeight = 48
	statusEvery  = 6 // frames between status polls
	flashFrames  = 8
)

var digitKeys = [...]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8,
}

// Controller is what the pad drives.
type Controller interface {
	Dwell(x, y float64)
	DwellStart()
	DwellStop()
	Drum(id string, vel float64) error
	SeqToggle() bool
	FX(name string, v float64) error
	Status() mk1.Status
}

// Pad implements ebiten.Game.
type Pad struct {
	ctl  Controller
	log  *log.Logger
	w, h int

	play    *Button
	dwell   *Button
	master  *Slider
	reverb  *Slider
	drums   []*Button
	flashes []int

	keys         [len(digitKeys)]bool
	space, enter bool
	lastX, lastY int
	dwellOn      bool
	playing      bool
	frame        int
	status       mk1.Status
}

func NewPad(ctl Controller, logger *log.Logger, w, h int) *Pad {
	if logger == nil {
		logger = log.Discard()
	}
	st := ctl.Status()
	p := &Pad{
		ctl:     ctl,
		log:     logger.With("ui"),
		w:       w,
		h:       h,
		play:    &Button{Rect: image.Rect(10, 8, 60, 30), Label: "play"},
		dwell:   &Button{Rect: image.Rect(70, 8, 130, 30), Label: "dwell"},
		master:  NewSlider("master", st.FX["master"]),
		reverb:  NewSlider("reverb", st.FX["reverb.mix"]),
		lastX:   -1,
		lastY:   -1,
		dwellOn: st.Dwell.Running,
		playing: st.Playing,
		status:  st,
		flashes: make([]int, len(audio.Drums)),
	}
	p.master.SetRect(image.Rect(w-260, 20, w-140, 32))
	p.reverb.SetRect(image.Rect(w-130, 20, w-10, 32))
	cell := w / len(audio.Drums)
	for i, id := range audio.Drums {
		r := image.Rect(i*cell+2, h-padRowHeight+4, (i+1)*cell-2, h-4)
		p.drums = append(p.drums, &Button{Rect: r, Label: fmt.Sprintf("%d %s", i+1, id)})
	}
	p.styleButtons()
	return p
}

func (p *Pad) styleButtons() {
	p.play.Style = ButtonStyle{Fill: colPlayButton, Border: colButtonBorder}
	p.play.Label = "play"
	if p.playing {
		p.play.Style.Fill = colStopButton
		p.play.Label = "stop"
	}
	p.dwell.Style = ButtonStyle{Fill: colDwellOff, Border: colButtonBorder}
	if p.dwellOn {
		p.dwell.Style.Fill = colDwellOn
	}
	for i, b := range p.drums {
		b.Style = ButtonStyle{Fill: lerpColor(colPad, colPadHit, float64(p.flashes[i])/flashFrames), Border: colPadBorder}
	}
}

// area is the dwell surface between the transport bar and the drum row.
func (p *Pad) area() image.Rectangle {
	return image.Rect(0, topOffset, p.w, p.h-padRowHeight)
}

// padCoords maps a screen point to dwell coordinates, y pointing up.
func (p *Pad) padCoords(x, y int) (float64, float64) {
	a := p.area()
	fx := float64(x-a.Min.X) / float64(max(a.Dx()-1, 1))
	fy := 1 - float64(y-a.Min.Y)/float64(max(a.Dy()-1, 1))
	return math.Min(math.Max(fx, 0), 1), math.Min(math.Max(fy, 0), 1)
}

// toScreen is the inverse of padCoords.
func (p *Pad) toScreen(x, y float64) (float64, float64) {
	a := p.area()
	return float64(a.Min.X) + x*float64(a.Dx()-1), float64(a.Min.Y) + (1-y)*float64(a.Dy()-1)
}

func (p *Pad) hit(i int) {
	if err := p.ctl.Drum(audio.Drums[i], 1); err != nil {
		p.log.Warnf("pad %d: %v", i+1, err)
		return
	}
	p.flashes[i] = flashFrames
}

func (p *Pad) toggleDwell() {
	p.dwellOn = !p.dwellOn
	if p.dwellOn {
		p.ctl.DwellStart()
	} else {
		p.ctl.DwellStop()
	}
}

func (p *Pad) Update() error {
	x, y := devices.Cursor()
	pressed := devices.Mouse(ebiten.MouseButtonLeft)
	_, dy := devices.Wheel()

	for _, c := range []struct {
		s     *Slider
		param string
	}{{p.master, "master"}, {p.reverb, "reverb.mix"}} {
		if c.s.Handle(x, y, pressed) || c.s.Scroll(x, y, dy) {
			if err := p.ctl.FX(c.param, c.s.Value); err != nil {
				p.log.Warnf("%s: %v", c.param, err)
			}
			break
		}
	}
	if p.play.Update(x, y, pressed) {
		p.playing = p.ctl.SeqToggle()
	}
	if p.dwell.Update(x, y, pressed) {
		p.toggleDwell()
	}
	for i, b := range p.drums {
		if b.Update(x, y, pressed) {
			p.hit(i)
		}
	}

	if pt(x, y, p.area()) && !p.master.Dragging() && !p.reverb.Dragging() && (x != p.lastX || y != p.lastY) {
		p.lastX, p.lastY = x, y
		p.ctl.Dwell(p.padCoords(x, y))
	}

	for i, k := range digitKeys {
		down := devices.Key(k)
		if down && !p.keys[i] {
			p.hit(i)
		}
		p.keys[i] = down
	}
	if down := devices.Key(ebiten.KeySpace); down != p.space {
		p.space = down
		if down {
			p.toggleDwell()
		}
	}
	if down := devices.Key(ebiten.KeyEnter); down != p.enter {
		p.enter = down
		if down {
			p.playing = p.ctl.SeqToggle()
		}
	}

	for i := range p.flashes {
		if p.flashes[i] > 0 {
			p.flashes[i]--
		}
	}
	p.frame++
	if p.frame%statusEvery == 0 {
		p.status = p.ctl.Status()
		p.playing = p.status.Playing
		p.dwellOn = p.status.Dwell.Running
	}
	p.styleButtons()
	return nil
}

func (p *Pad) Draw(dst *ebiten.Image) {
	a := p.area()
	const bands = 32
	for i := range bands {
		y0 := a.Min.Y + a.Dy()*i/bands
		y1 := a.Min.Y + a.Dy()*(i+1)/bands
		drawRect(dst, image.Rect(a.Min.X, y0, a.Max.X, y1), lerpColor(colBGTop, colBGBottom, float64(i)/bands), true)
	}
	for i := 1; i < 10; i++ {
		x := float64(a.Min.X) + float64(a.Dx())*float64(i)/10
		drawLine(dst, x, float64(a.Min.Y), x, float64(a.Max.Y), colGridLine)
	}

	d := p.status.Dwell
	cx, cy := p.toScreen(d.X, d.Y)
	radius := 6 + 10*math.Min(d.Density, 4)/4
	glow := lerpColor(colDwellDark, colDwellLit, math.Min(d.Brightness/4000, 1))
	if !p.dwellOn {
		glow = colPadBorder
	}
	drawDot(dst, cx, cy, radius, glow)
	if p.lastX >= 0 {
		drawLine(dst, float64(p.lastX-6), float64(p.lastY), float64(p.lastX+6), float64(p.lastY), colCursor)
		drawLine(dst, float64(p.lastX), float64(p.lastY-6), float64(p.lastX), float64(p.lastY+6), colCursor)
	}

	drawRect(dst, image.Rect(0, 0, p.w, topOffset), colBar, true)
	p.play.Draw(dst)
	p.dwell.Draw(dst)
	p.master.Draw(dst)
	p.reverb.Draw(dst)
	ebitenutil.DebugPrintAt(dst, p.infoLine(), 140, 12)

	drawRect(dst, image.Rect(0, p.h-padRowHeight, p.w, p.h), colBar, true)
	for _, b := range p.drums {
		b.Draw(dst)
	}
}

func (p *Pad) infoLine() string {
	st := p.status
	var loops []string
	for _, l := range st.Loops {
		loops = append(loops, fmt.Sprintf("%s:%s", l.Slot, l.State))
	}
	return fmt.Sprintf("%d bpm  step %2d  root %.1f  voices %d  %s",
		st.BPM, st.Step, st.Dwell.Root, st.Voices, strings.Join(loops, " "))
}

func (p *Pad) Layout(_, _ int) (int, int) { return p.w, p.h }

// Run opens the window and blocks until it is closed.
func Run(p *Pad, title string) error {
	ebiten.SetWindowSize(p.w, p.h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	return ebiten.RunGame(p)
}
