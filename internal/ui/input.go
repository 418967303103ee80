package ui

import "github.com/hajimehoshi/ebiten/v2"

// Input is the pointer and keyboard state the pad polls every frame.
type Input struct {
	Cursor func() (int, int)
	Mouse  func(ebiten.MouseButton) bool
	Key    func(ebiten.Key) bool
	Wheel  func() (float64, float64)
}

var devices = Input{
	Cursor: ebiten.CursorPosition,
	Mouse:  ebiten.IsMouseButtonPressed,
	Key:    ebiten.IsKeyPressed,
	Wheel:  ebiten.Wheel,
}

// SetInputForTest swaps the input source and returns a function restoring
// the real devices.
func SetInputForTest(in Input) func() {
	old := devices
	devices = in
	return func() { devices = old }
}
