// Package mask rasterizes crop geometry into single-channel 8-bit masks and
// implements the run-length mask format spoken by the tracking server.
package mask

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
)

// ErrResolutionMismatch is returned when an externally supplied mask does
// not match the requested target resolution.
var ErrResolutionMismatch = errors.New("mask resolution mismatch")

// Mask is a single-channel 8-bit bitmap: 255 inside the crop, 0 outside.
// Antialiased boundary pixels carry intermediate coverage values.
type Mask struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed (fully transparent) mask.
func New(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]byte, w*h)}
}

// Full allocates a fully opaque mask, the degenerate full-frame case.
func Full(w, h int) *Mask {
	m := New(w, h)
	for i := range m.Pix {
		m.Pix[i] = 0xff
	}
	return m
}

// At returns the coverage value at (x, y); out-of-bounds reads are 0.
func (m *Mask) At(x, y int) byte {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// OpaqueArea counts fractional coverage over the whole mask, in pixels.
func (m *Mask) OpaqueArea() float64 {
	var sum float64
	for _, v := range m.Pix {
		sum += float64(v) / 255.0
	}
	return sum
}

// CheckResolution validates an externally supplied mask against the target
// resolution (the AI passthrough rule).
func (m *Mask) CheckResolution(w, h int) error {
	if m.Width != w || m.Height != h {
		return fmt.Errorf("%w: have %dx%d, want %dx%d", ErrResolutionMismatch, m.Width, m.Height, w, h)
	}
	return nil
}

// Gray wraps the mask pixels as an image.Gray without copying.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
}

// WritePNG persists the mask as a grayscale PNG so the encoder can consume
// it by path. The rasterizer itself never touches the filesystem; this is
// for the export orchestrator.
func (m *Mask) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m.Gray()); err != nil {
		f.Close()
		return fmt.Errorf("encode mask png: %w", err)
	}
	return f.Close()
}

// ReadPNG loads a grayscale PNG back into a mask.
func ReadPNG(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode mask png: %w", err)
	}
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.Pix[y*m.Width+x] = byte(gray >> 8)
		}
	}
	return m, nil
}
