package mask

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/cropaway/cropengine/internal/geometry"
)

// Rasterize renders the geometry into a mask at the target resolution.
// Shapes are filled with the nonzero winding rule; edges are antialiased. A
// pixel whose center lies inside the shape is always opaque-dominant, so
// area measurements stay consistent across resolutions.
//
// Rectangle geometry is handled by the filter-graph crop stage and normally
// never reaches the rasterizer, but it fills correctly if asked. AI masks
// come from the tracker and only pass through Passthrough.
func Rasterize(g geometry.Geometry, targetW, targetH int) (*Mask, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", geometry.ErrInvalidGeometry, targetW, targetH)
	}
	switch g.Mode {
	case geometry.ModeRectangle:
		return fillRect(g.Rect, targetW, targetH), nil
	case geometry.ModeCircle:
		return fillCircle(g.Center, g.Radius, targetW, targetH), nil
	case geometry.ModeFreehand:
		if len(g.Vertices) < 3 {
			// Degenerate polygon means full-frame passthrough.
			return Full(targetW, targetH), nil
		}
		return fillPolygon(g.Vertices, targetW, targetH), nil
	case geometry.ModeAI:
		return nil, fmt.Errorf("%w: ai masks are supplied externally", geometry.ErrInvalidGeometry)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", geometry.ErrInvalidGeometry, g.Mode)
}

// Passthrough validates an externally supplied mask (AI mode) against the
// target resolution and hands it back unchanged.
func Passthrough(m *Mask, targetW, targetH int) (*Mask, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrResolutionMismatch)
	}
	if err := m.CheckResolution(targetW, targetH); err != nil {
		return nil, err
	}
	return m, nil
}

func fillRect(r geometry.Rect, w, h int) *Mask {
	z := vector.NewRasterizer(w, h)
	x0 := float32(r.X * float64(w))
	y0 := float32(r.Y * float64(h))
	x1 := float32((r.X + r.Width) * float64(w))
	y1 := float32((r.Y + r.Height) * float64(h))
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
	return drain(z, w, h)
}

// fillCircle fills a circle of pixel radius radius*min(w,h) centered at the
// denormalized center. Four cubic Béziers approximate the circle (kappa
// control-point offset); the deviation is far below one pixel at any
// practical radius.
func fillCircle(center geometry.Point, radius float64, w, h int) *Mask {
	cx := float32(center.X * float64(w))
	cy := float32(center.Y * float64(h))
	r := float32(radius * math.Min(float64(w), float64(h)))
	const kappa = 0.55228475
	k := r * kappa

	z := vector.NewRasterizer(w, h)
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
	return drain(z, w, h)
}

func fillPolygon(vertices []geometry.Point, w, h int) *Mask {
	z := vector.NewRasterizer(w, h)
	z.MoveTo(float32(vertices[0].X*float64(w)), float32(vertices[0].Y*float64(h)))
	for _, v := range vertices[1:] {
		z.LineTo(float32(v.X*float64(w)), float32(v.Y*float64(h)))
	}
	z.ClosePath()
	return drain(z, w, h)
}

func drain(z *vector.Rasterizer, w, h int) *Mask {
	m := New(w, h)
	dst := &image.Alpha{Pix: m.Pix, Stride: m.Width, Rect: image.Rect(0, 0, w, h)}
	z.Draw(dst, dst.Rect, image.Opaque, image.Point{})
	return m
}
