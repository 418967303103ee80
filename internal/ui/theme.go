package ui

import "image/color"

var (
	colBGTop    = color.RGBA{20, 20, 30, 255}
	colBGBottom = color.RGBA{10, 10, 10, 255}
	colGridLine = color.RGBA{60, 60, 60, 255}
	colBar      = color.RGBA{15, 15, 15, 255}

	colButtonBorder = color.RGBA{240, 240, 240, 255}
	colPlayButton   = color.RGBA{40, 200, 40, 255}
	colStopButton   = color.RGBA{200, 40, 40, 255}
	colDwellOn      = color.RGBA{40, 160, 200, 255}
	colDwellOff     = color.RGBA{40, 40, 40, 255}

	colPad       = color.RGBA{30, 30, 30, 255}
	colPadBorder = color.RGBA{80, 80, 80, 255}
	colPadHit    = color.RGBA{0, 200, 255, 255}

	colSliderTrack = color.RGBA{80, 80, 80, 255}
	colSliderKnob  = color.RGBA{200, 200, 200, 255}

	colCursor    = color.RGBA{255, 255, 0, 255}
	colDwellDark = color.RGBA{60, 40, 120, 255}
	colDwellLit  = color.RGBA{255, 200, 120, 255}
)

// lerpColor mixes a toward b by t in [0, 1].
func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}
