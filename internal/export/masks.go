package export

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cropaway/cropengine/internal/filtergraph"
	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/mask"
	"github.com/cropaway/cropengine/internal/timeline"
)

// needsMask reports whether the export composites through a mask input.
// Rectangle crops are pure crop filters; a degenerate static freehand is a
// full-frame passthrough.
func needsMask(tl *timeline.Timeline) bool {
	if tl.Mode == geometry.ModeRectangle {
		return false
	}
	if tl.Static() && len(tl.Keyframes) > 0 && tl.Keyframes[0].Geometry.Degenerate() {
		return false
	}
	return true
}

// prepareMasks renders the mask input for one job into its temp directory:
// a single PNG for static timelines, a numbered frame sequence otherwise.
// onProgress receives the fraction of frames done.
func prepareMasks(ctx context.Context, j *Job, dir string, workers int, onProgress func(float64)) (*filtergraph.MaskAsset, error) {
	req := j.req
	w, h := req.Source.Width, req.Source.Height

	if req.Timeline.Static() {
		g, err := timeline.Sample(req.Timeline, 0)
		if err != nil {
			return nil, err
		}
		m, err := renderMask(g, req, w, h)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, "mask.png")
		if err := m.WritePNG(path); err != nil {
			return nil, err
		}
		onProgress(1)
		return &filtergraph.MaskAsset{Path: path}, nil
	}

	fps := req.Source.FrameRate
	frames := int(math.Ceil(req.Source.Duration * fps))
	if frames < 1 {
		frames = 1
	}

	var done atomic.Int64
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := 0; i < frames; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := float64(i) / fps
			g, err := timeline.Sample(req.Timeline, t)
			if err != nil {
				return err
			}
			m, err := renderMask(g, req, w, h)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			if err := m.WritePNG(filepath.Join(dir, maskFrameName(i))); err != nil {
				return err
			}
			onProgress(float64(done.Add(1)) / float64(frames))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &filtergraph.MaskAsset{
		Path:      filepath.Join(dir, "mask_%06d.png"),
		Sequence:  true,
		FrameRate: fps,
	}, nil
}

func maskFrameName(i int) string {
	return fmt.Sprintf("mask_%06d.png", i)
}

// renderMask produces the mask for one sampled geometry. Tracked geometry
// resolves through the request's mask table; everything else rasterizes.
func renderMask(g geometry.Geometry, req Request, w, h int) (*mask.Mask, error) {
	if g.Mode == geometry.ModeAI {
		m, ok := req.Masks[g.MaskRef]
		if !ok {
			return nil, fmt.Errorf("no mask for reference %q", g.MaskRef)
		}
		return mask.Passthrough(m, w, h)
	}
	return mask.Rasterize(g, w, h)
}
