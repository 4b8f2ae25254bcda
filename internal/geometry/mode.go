package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Mode selects the crop shape for a whole timeline.
type Mode string

const (
	ModeRectangle Mode = "rectangle"
	ModeCircle    Mode = "circle"
	ModeFreehand  Mode = "freehand"
	ModeAI        Mode = "ai"
)

// ErrInvalidGeometry reports coordinates or payloads that cannot be clamped
// into shape (wrong mode payload, empty AI reference).
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is the mode-tagged crop payload. Only the fields matching Mode
// are meaningful; the others stay zero. A tagged union keeps each mode's
// interpolation and rasterization logic next to its data.
type Geometry struct {
	Mode Mode `yaml:"mode"`

	// Rectangle
	Rect Rect `yaml:"rect,omitempty"`

	// Circle
	Center Point   `yaml:"center,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`

	// Freehand: ordered polygon vertices. Fewer than 3 is degenerate and
	// means full-frame passthrough, not an error.
	Vertices []Point `yaml:"vertices,omitempty"`

	// AI: externally supplied per-time bounding box plus a reference to the
	// mask asset for that time.
	Box     Rect   `yaml:"box,omitempty"`
	MaskRef string `yaml:"maskRef,omitempty"`
}

// Rectangle builds a rectangle-mode geometry, clamping the rect.
func Rectangle(r Rect) Geometry {
	return Geometry{Mode: ModeRectangle, Rect: NewRect(r.X, r.Y, r.Width, r.Height)}
}

// Circle builds a circle-mode geometry. The radius is normalized against
// min(frame width, frame height) at rasterization time.
func Circle(center Point, radius float64) Geometry {
	return Geometry{Mode: ModeCircle, Center: NewPoint(center.X, center.Y), Radius: clamp01(radius)}
}

// Freehand builds a freehand-mode geometry from ordered vertices.
func Freehand(vertices []Point) Geometry {
	vs := make([]Point, len(vertices))
	for i, v := range vertices {
		vs[i] = NewPoint(v.X, v.Y)
	}
	return Geometry{Mode: ModeFreehand, Vertices: vs}
}

// AIBox builds an AI-mode geometry from a tracked bounding box and mask
// reference.
func AIBox(box Rect, maskRef string) Geometry {
	return Geometry{Mode: ModeAI, Box: NewRect(box.X, box.Y, box.Width, box.Height), MaskRef: maskRef}
}

// Validate checks the payload matches the mode.
func (g Geometry) Validate() error {
	switch g.Mode {
	case ModeRectangle:
		if g.Rect.Width <= 0 || g.Rect.Height <= 0 {
			return fmt.Errorf("%w: rectangle with non-positive size", ErrInvalidGeometry)
		}
	case ModeCircle:
		if g.Radius <= 0 {
			return fmt.Errorf("%w: circle with non-positive radius", ErrInvalidGeometry)
		}
	case ModeFreehand:
		// Any vertex count is accepted; <3 is the documented degenerate
		// full-frame case.
	case ModeAI:
		if g.Box.Width <= 0 || g.Box.Height <= 0 {
			return fmt.Errorf("%w: ai geometry without bounding box", ErrInvalidGeometry)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidGeometry, g.Mode)
	}
	return nil
}

// Degenerate reports whether the geometry resolves to full-frame
// passthrough (freehand with fewer than 3 vertices).
func (g Geometry) Degenerate() bool {
	return g.Mode == ModeFreehand && len(g.Vertices) < 3
}

// BoundingBox returns the normalized bounding rectangle of the geometry.
// Degenerate geometries bound the full frame.
func (g Geometry) BoundingBox() Rect {
	switch g.Mode {
	case ModeRectangle:
		return g.Rect
	case ModeCircle:
		// The radius is relative to the short frame edge, so the box in
		// normalized space depends on the frame aspect; callers that need
		// pixel-exact bounds denormalize first. The normalized box here is
		// conservative: radius applied to both axes.
		return NewRect(g.Center.X-g.Radius, g.Center.Y-g.Radius, 2*g.Radius, 2*g.Radius)
	case ModeFreehand:
		if len(g.Vertices) < 3 {
			return FullFrame()
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, v := range g.Vertices {
			minX = math.Min(minX, v.X)
			minY = math.Min(minY, v.Y)
			maxX = math.Max(maxX, v.X)
			maxY = math.Max(maxY, v.Y)
		}
		return NewRect(minX, minY, maxX-minX, maxY-minY)
	case ModeAI:
		return g.Box
	}
	return FullFrame()
}

// Equal reports field-for-field equality. Used by the orchestrator to
// decide between a single mask and a per-frame mask sequence.
func (g Geometry) Equal(o Geometry) bool {
	if g.Mode != o.Mode {
		return false
	}
	switch g.Mode {
	case ModeRectangle:
		return g.Rect == o.Rect
	case ModeCircle:
		return g.Center == o.Center && g.Radius == o.Radius
	case ModeFreehand:
		if len(g.Vertices) != len(o.Vertices) {
			return false
		}
		for i := range g.Vertices {
			if g.Vertices[i] != o.Vertices[i] {
				return false
			}
		}
		return true
	case ModeAI:
		return g.Box == o.Box && g.MaskRef == o.MaskRef
	}
	return false
}
