package ui

import (
	"fmt"
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/ingyamilmolinar/mk1/internal/utils"
)

const wheelStep = 0.05 // per notch

// Slider edits a 0..1 value by dragging or with the mouse wheel.
type Slider struct {
	Label string
	Value float64

	rect image.Rectangle
	drag bool
}

func NewSlider(label string, v float64) *Slider {
	return &Slider{Label: label, Value: utils.Clamp(v, 0, 1)}
}

func (s *Slider) SetRect(r image.Rectangle) { s.rect = r }
func (s *Slider) Rect() image.Rectangle     { return s.rect }
func (s *Slider) Dragging() bool            { return s.drag }

// Handle follows a drag that started inside the slider. It reports whether
// the pointer belongs to the slider this frame.
func (s *Slider) Handle(x, y int, pressed bool) bool {
	switch {
	case pressed && (s.drag || pt(x, y, s.rect)):
		s.drag = true
		s.Value = s.valueAt(x)
		return true
	case !pressed && s.drag:
		s.drag = false
		return true
	}
	return false
}

// Scroll nudges the value by dy wheel notches while the cursor is over the
// slider.
func (s *Slider) Scroll(x, y int, dy float64) bool {
	if dy == 0 || !pt(x, y, s.rect) {
		return false
	}
	s.Value = utils.Clamp(s.Value+dy*wheelStep, 0, 1)
	return true
}

func (s *Slider) valueAt(x int) float64 {
	w := s.rect.Dx() - 1
	if w <= 0 {
		return 0
	}
	return utils.Clamp(float64(x-s.rect.Min.X)/float64(w), 0, 1)
}

func (s *Slider) Draw(dst *ebiten.Image) {
	r := s.rect
	mid := r.Min.Y + r.Dy()/2
	drawRect(dst, image.Rect(r.Min.X, mid-2, r.Max.X, mid+2), colSliderTrack, true)
	kx := r.Min.X + int(s.Value*float64(r.Dx()-1))
	drawRect(dst, image.Rect(kx-2, r.Min.Y, kx+2, r.Max.Y), colSliderKnob, true)
	label := fmt.Sprintf("%s %d%%", s.Label, int(math.Round(s.Value*100)))
	ebitenutil.DebugPrintAt(dst, label, r.Min.X, r.Min.Y-15)
}
