package mask

import (
	"errors"

	"github.com/cropaway/cropengine/internal/geometry"
)

// BoundingBox returns the normalized bounding rectangle of the opaque
// region. An empty mask bounds the full frame, matching the tracker's
// convention for "nothing found".
func BoundingBox(m *Mask) geometry.Rect {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return geometry.FullFrame()
	}
	return geometry.NewRect(
		float64(minX)/float64(m.Width),
		float64(minY)/float64(m.Height),
		float64(maxX-minX+1)/float64(m.Width),
		float64(maxY-minY+1)/float64(m.Height),
	)
}

// ResizeNearest scales the mask with nearest-neighbor sampling, preserving
// hard binary edges.
func ResizeNearest(m *Mask, w, h int) *Mask {
	out := New(w, h)
	for y := 0; y < h; y++ {
		sy := y * m.Height / h
		srcRow := m.Pix[sy*m.Width : (sy+1)*m.Width]
		dstRow := out.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			dstRow[x] = srcRow[x*m.Width/w]
		}
	}
	return out
}

// Combine merges masks by weighted vote, thresholded at half the total
// weight. With nil weights every mask counts equally.
func Combine(masks []*Mask, weights []float64) (*Mask, error) {
	if len(masks) == 0 {
		return nil, errors.New("no masks to combine")
	}
	if weights == nil {
		weights = make([]float64, len(masks))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(masks) {
		return nil, errors.New("weights and masks length mismatch")
	}
	base := masks[0]
	total := 0.0
	for _, w := range weights {
		total += w
	}
	acc := make([]float64, len(base.Pix))
	for i, m := range masks {
		if err := m.CheckResolution(base.Width, base.Height); err != nil {
			return nil, err
		}
		for j, v := range m.Pix {
			if v > 127 {
				acc[j] += weights[i]
			}
		}
	}
	out := New(base.Width, base.Height)
	half := total / 2
	for j, v := range acc {
		if v > half {
			out.Pix[j] = 0xff
		}
	}
	return out, nil
}
