// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an RGB colour.
type Color struct {
	R, G, B uint8
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string {
	return c.Hex()
}

// ParseHex parses #rrggbb (the # is optional).
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q: want #rrggbb", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}

	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Gradient maps [0,1] to a colour by interpolating each RGB channel linearly
// between Low and High.
type Gradient struct {
	Low, High Color
}

// DefaultGradient goes from green (low dose) to red (high dose).
var DefaultGradient = Gradient{
	Low:  Color{R: 0x00, G: 0xff, B: 0x00},
	High: Color{R: 0xff, G: 0x00, B: 0x00},
}

// Neutral is the position used when a value can't be normalised.
const Neutral = 0.5

// At returns the colour at t. Values outside [0,1] are clamped and NaN maps
// to Neutral.
func (g Gradient) At(t float64) Color {
	switch {
	case math.IsNaN(t):
		t = Neutral
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}

	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}

	return Color{
		R: lerp(g.Low.R, g.High.R),
		G: lerp(g.Low.G, g.High.G),
		B: lerp(g.Low.B, g.High.B),
	}
}

// Normalize returns where v sits between lo and hi. It returns Neutral when
// the range is empty or any input is not a finite number.
func Normalize(v, lo, hi float64) float64 {
	for _, f := range []float64{v, lo, hi} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Neutral
		}
	}

	if hi <= lo {
		return Neutral
	}

	return (v - lo) / (hi - lo)
}
