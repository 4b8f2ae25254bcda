// Package geometry holds the normalized crop value types shared by the
// timeline, rasterizer and filter-graph builder. All coordinates are
// normalized to [0,1] and resolved to pixels only at export time.
package geometry

import "math"

// Point is a normalized position.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Rect is a normalized rectangle. Width and height must stay positive and
// the rectangle must fit inside the unit square; constructors clamp instead
// of rejecting.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// NewPoint clamps both components to [0,1].
func NewPoint(x, y float64) Point {
	return Point{X: clamp01(x), Y: clamp01(y)}
}

// NewRect clamps the origin and size so the rectangle fits in the unit
// square. A non-positive size collapses to the smallest representable
// extent rather than an error.
func NewRect(x, y, w, h float64) Rect {
	x = clamp01(x)
	y = clamp01(y)
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}
	if x+w > 1 {
		w = 1 - x
	}
	if y+h > 1 {
		h = 1 - y
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

const minExtent = 1e-6

// FullFrame is the identity crop.
func FullFrame() Rect { return Rect{X: 0, Y: 0, Width: 1, Height: 1} }

// IsFullFrame reports whether the rect covers (nearly) the whole frame,
// so no-op crop stages can be skipped.
func (r Rect) IsFullFrame() bool {
	return r.X <= 0.005 && r.Y <= 0.005 && r.Width >= 0.99 && r.Height >= 0.99
}

// Pixels denormalizes against a frame size. No even-dimension rounding
// happens here; that is the filter-graph builder's policy.
func (r Rect) Pixels(frameW, frameH int) (x, y, w, h int) {
	x = int(math.Round(r.X * float64(frameW)))
	y = int(math.Round(r.Y * float64(frameH)))
	w = int(math.Round(r.Width * float64(frameW)))
	h = int(math.Round(r.Height * float64(frameH)))
	if x+w > frameW {
		w = frameW - x
	}
	if y+h > frameH {
		h = frameH - y
	}
	return x, y, w, h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp performs linear interpolation between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpPoint interpolates both components.
func LerpPoint(a, b Point, t float64) Point {
	return Point{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// LerpRect interpolates each field independently.
func LerpRect(a, b Rect, t float64) Rect {
	return Rect{
		X:      Lerp(a.X, b.X, t),
		Y:      Lerp(a.Y, b.Y, t),
		Width:  Lerp(a.Width, b.Width, t),
		Height: Lerp(a.Height, b.Height, t),
	}
}
