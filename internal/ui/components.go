package ui

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// pt is a helper function to check if a point is within a rectangle.
func pt(x, y int, r image.Rectangle) bool {
	return x >= r.Min.X && x < r.Max.X && y >= r.Min.Y && y < r.Max.Y
}

// ButtonStyle describes rectangular button visuals.
type ButtonStyle struct {
	Fill   color.Color
	Border color.Color
}

// Draw renders the button rectangle using the global drawButton primitive.
func (s ButtonStyle) Draw(dst *ebiten.Image, r image.Rectangle, pressed bool) {
	drawButton(dst, r, s.Fill, s.Border, pressed)
}

// Button fires once per press that starts inside it.
type Button struct {
	Rect  image.Rectangle
	Label string
	Style ButtonStyle
	down  bool
	held  bool
}

// Update feeds the current mouse state and reports a click.
func (b *Button) Update(x, y int, pressed bool) bool {
	click := pressed && !b.down && pt(x, y, b.Rect)
	if click {
		b.held = true
	}
	if !pressed {
		b.held = false
	}
	b.down = pressed
	return click
}

func (b *Button) Draw(dst *ebiten.Image) {
	b.Style.Draw(dst, b.Rect, b.held)
	ebitenutil.DebugPrintAt(dst, b.Label, b.Rect.Min.X+6, b.Rect.Min.Y+3)
}
