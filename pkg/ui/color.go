package ui

import "fmt"

// Color is an RGB property value in the 0..1 range used by engine widgets.
type Color struct {
	R, G, B float64
}

// RGB constructs a Color from 0..255 channel values. Pure: same inputs
// always produce the same value, which is what lets the optimizer hoist
// RGB(...) calls with constant arguments into a static template.
func RGB(r, g, b int) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Hex constructs a Color from a "#rrggbb" string. Malformed input yields
// black rather than an error so the constructor stays pure and total.
func Hex(s string) Color {
	var r, g, b int
	if len(s) == 7 && s[0] == '#' {
		if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
			return Color{}
		}
	}
	return RGB(r, g, b)
}

// Scale constructs a dimension value expressed as a fraction of the parent
// plus a pixel offset, mirroring the engine's UDim convention.
type Scale struct {
	Fraction float64
	Offset   int
}

// Dim constructs a Scale. Pure, allow-listed by default.
func Dim(fraction float64, offset int) Scale {
	return Scale{Fraction: fraction, Offset: offset}
}
