package ui

import (
	"image"
	"testing"
)

func TestSliderClamp(t *testing.T) {
	s := NewSlider("master", 0)
	s.SetRect(image.Rect(0, 0, 100, 10))
	// start drag inside
	if !s.Handle(1, 5, true) {
		t.Fatalf("expected handle to start drag")
	}
	// drag beyond max width
	s.Handle(150, 5, true)
	if s.Value < 0.99 || s.Value > 1 {
		t.Fatalf("expected value clamped to 1 got %f", s.Value)
	}
	// release
	if !s.Handle(150, 5, false) || s.Dragging() {
		t.Fatalf("release not consumed")
	}
	if s.Handle(50, 50, true) {
		t.Fatalf("press outside started a drag")
	}
}

func TestButtonClickEdge(t *testing.T) {
	b := &Button{Rect: image.Rect(10, 10, 40, 30)}
	if !b.Update(20, 20, true) {
		t.Fatal("press inside should click")
	}
	if b.Update(20, 20, true) {
		t.Fatal("holding should not click again")
	}
	b.Update(20, 20, false)
	if b.Update(0, 0, true) {
		t.Fatal("press outside should not click")
	}
	// dragging in from outside is not a click
	if b.Update(20, 20, true) {
		t.Fatal("drag-in should not click")
	}
}
