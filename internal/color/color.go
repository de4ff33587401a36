package color

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned by FromHSV when an argument is outside its
// domain (h > 360, s > 100 or v > 100).
var ErrInvalidRange = errors.New("hsv values out of range")

// Color is a single pixel, one byte per channel.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color from raw channel bytes.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// FromHSV converts hue [0,360], saturation [0,100] and value [0,100] to RGB.
// Bounds are inclusive. Fractional channel values are truncated toward zero,
// not rounded, so exact byte outputs are stable across platforms.
func FromHSV(h, s, v int) (Color, error) {
	if h < 0 || h > 360 || s < 0 || s > 100 || v < 0 || v > 100 {
		return Color{}, fmt.Errorf("hsv(%d,%d,%d): %w", h, s, v, ErrInvalidRange)
	}

	sf := float64(s) / 100.0
	vf := float64(v) / 100.0
	c := sf * vf
	x := c * (1.0 - math.Abs(math.Mod(float64(h)/60.0, 2.0)-1.0))
	m := vf - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default: // 300..360
		r, g, b = c, 0, x
	}

	return Color{
		R: uint8((r + m) * 255.0),
		G: uint8((g + m) * 255.0),
		B: uint8((b + m) * 255.0),
	}, nil
}

// Packed returns the 24-bit wire value the chip expects: green in bits
// 16-23, red in bits 8-15, blue in bits 0-7. The order is a hardware
// contract, not a preference.
func (c Color) Packed() uint32 {
	return uint32(c.G)<<16 | uint32(c.R)<<8 | uint32(c.B)
}
