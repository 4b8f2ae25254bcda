package filtergraph

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/probe"
	"github.com/cropaway/cropengine/internal/timeline"
)

// ErrOddDimension reports a frame that cannot be even-rounded, i.e. a zero
// or negative size after truncation. Odd sizes themselves are corrected,
// never surfaced.
var ErrOddDimension = errors.New("frame dimension cannot be made even")

// Settings is the read-only export configuration.
type Settings struct {
	PreserveFullFrame bool   `yaml:"preserveFullFrame"`
	EnableAlpha       bool   `yaml:"enableAlpha"`
	Codec             string `yaml:"codec,omitempty"`
	UseHardware       bool   `yaml:"useHardwareEncoder"`
	// Platform keys the hardware encoder table; empty means the current OS.
	Platform Platform `yaml:"platform,omitempty"`
	// BackgroundColor fills outside the mask when alpha is disabled.
	BackgroundColor string `yaml:"backgroundColor,omitempty"`
	Quality         int    `yaml:"quality,omitempty"`
}

// Summary condenses a crop timeline for one build call. The orchestrator
// fills it from interpolated geometry, so the builder needs no timeline
// mutation access.
type Summary struct {
	Mode   geometry.Mode
	Static bool
	// Geometry is the representative sample: the sole geometry for static
	// timelines, the first keyframe's otherwise.
	Geometry geometry.Geometry
	// Keyframes feed the piecewise crop expressions for animated
	// rectangle timelines.
	Keyframes []timeline.Keyframe
}

// Build constructs the filter graph for one export. Pure: no I/O, no
// process, deterministic for identical inputs.
func Build(src probe.SourceProps, st Settings, sum Summary, mask *MaskAsset) (*Graph, error) {
	srcW, err := evenize(src.Width)
	if err != nil {
		return nil, fmt.Errorf("source width %d: %w", src.Width, err)
	}
	srcH, err := evenize(src.Height)
	if err != nil {
		return nil, fmt.Errorf("source height %d: %w", src.Height, err)
	}

	codec := st.Codec
	if codec == "" {
		codec = src.Codec
	}
	platform := st.Platform
	if platform == "" {
		platform = Platform(runtime.GOOS)
	}
	enc, err := SelectEncoder(codec, st.UseHardware, platform)
	if err != nil {
		return nil, err
	}

	g := &Graph{Encoder: enc, PixelFormat: "yuv420p"}
	if st.EnableAlpha {
		g.PixelFormat = "yuva420p"
	}

	switch {
	case sum.Mode == geometry.ModeRectangle && st.PreserveFullFrame:
		// Crop stays an in-app overlay; export the full frame.
		buildFullFrame(g, src, srcW, srcH)

	case sum.Mode == geometry.ModeRectangle:
		if err := buildRectangle(g, src, sum, srcW, srcH); err != nil {
			return nil, err
		}

	case sum.Static && sum.Geometry.Degenerate():
		// A static sub-3-vertex freehand exports the full frame, no mask
		// stage. Animated timelines keep the mask path: later keyframes
		// may grow a real shape.
		buildFullFrame(g, src, srcW, srcH)

	default: // circle, freehand, ai
		if err := buildMasked(g, st, src, sum, mask, srcW, srcH); err != nil {
			return nil, err
		}
	}

	g.Stages = append(g.Stages, formatStage(g.PixelFormat))
	return g, nil
}

func buildFullFrame(g *Graph, src probe.SourceProps, srcW, srcH int) {
	if srcW != src.Width || srcH != src.Height {
		g.Stages = append(g.Stages, scaleStage(srcW, srcH))
	}
	g.OutputWidth, g.OutputHeight = srcW, srcH
}

func buildRectangle(g *Graph, src probe.SourceProps, sum Summary, srcW, srcH int) error {
	x, y, w, h := sum.Geometry.Rect.Pixels(src.Width, src.Height)
	w, err := evenize(w)
	if err != nil {
		return fmt.Errorf("crop width: %w", err)
	}
	h, err = evenize(h)
	if err != nil {
		return fmt.Errorf("crop height: %w", err)
	}

	if sum.Static || len(sum.Keyframes) < 2 {
		if sum.Geometry.Rect.IsFullFrame() {
			buildFullFrame(g, src, srcW, srcH)
			return nil
		}
		g.Stages = append(g.Stages, cropStage(w, h, x, y))
	} else {
		// Animated crop: the output size is held at the first keyframe's
		// size while x/y follow eased piecewise time expressions.
		xExpr := panExpression(sum.Keyframes, src.Width, true)
		yExpr := panExpression(sum.Keyframes, src.Height, false)
		g.Stages = append(g.Stages, cropExprStage(w, h, xExpr, yExpr))
	}
	g.OutputWidth, g.OutputHeight = w, h
	return nil
}

func buildMasked(g *Graph, st Settings, src probe.SourceProps, sum Summary, mask *MaskAsset, srcW, srcH int) error {
	if mask == nil {
		return fmt.Errorf("%s crop requires a mask asset", sum.Mode)
	}
	g.Mask = mask

	// Shrink the working frame to the geometry's bounding box across the
	// whole timeline before compositing.
	bbox := timelineBounds(sum)
	x, y, w, h := bbox.Pixels(src.Width, src.Height)
	w, err := evenize(w)
	if err != nil {
		return fmt.Errorf("bounding box width: %w", err)
	}
	h, err = evenize(h)
	if err != nil {
		return fmt.Errorf("bounding box height: %w", err)
	}

	if bbox.IsFullFrame() {
		x, y, w, h = 0, 0, srcW, srcH
	}
	g.Stages = append(g.Stages, cropStage(w, h, x, y))
	g.Stages = append(g.Stages, maskCropStage(w, h, x, y))
	g.Stages = append(g.Stages, Stage{Name: StageAlphaMerge})
	if !st.EnableAlpha {
		color := st.BackgroundColor
		if color == "" {
			color = "black"
		}
		g.Stages = append(g.Stages, backgroundStage(color, w, h))
		g.Stages = append(g.Stages, Stage{Name: StageOverlay})
	}
	g.OutputWidth, g.OutputHeight = w, h
	return nil
}

// timelineBounds unions bounding boxes over every keyframe so an animated
// shape never escapes the cropped frame.
func timelineBounds(sum Summary) geometry.Rect {
	bounds := sum.Geometry.BoundingBox()
	for _, kf := range sum.Keyframes {
		bb := kf.Geometry.BoundingBox()
		x0 := min(bounds.X, bb.X)
		y0 := min(bounds.Y, bb.Y)
		x1 := max(bounds.X+bounds.Width, bb.X+bb.Width)
		y1 := max(bounds.Y+bounds.Height, bb.Y+bb.Height)
		bounds = geometry.NewRect(x0, y0, x1-x0, y1-y0)
	}
	return bounds
}

// panExpression builds the piecewise eased expression for the crop origin
// on one axis, in the encoder's time variable t.
func panExpression(kfs []timeline.Keyframe, dim int, isX bool) string {
	origin := func(kf timeline.Keyframe) float64 {
		if isX {
			return kf.Geometry.Rect.X * float64(dim)
		}
		return kf.Geometry.Rect.Y * float64(dim)
	}

	var b strings.Builder
	for i := 0; i < len(kfs)-1; i++ {
		from, to := kfs[i], kfs[i+1]
		span := to.Time - from.Time
		if span <= 0 {
			continue
		}
		p := fmt.Sprintf("((t-%.4f)/%.4f)", from.Time, span)
		eased := easedExpr(from.Easing, p)
		fmt.Fprintf(&b, "if(lt(t,%.4f),%.4f+%s*(%.4f-%.4f),",
			to.Time, origin(from), eased, origin(to), origin(from))
	}
	fmt.Fprintf(&b, "%.4f", origin(kfs[len(kfs)-1]))
	for i := 0; i < len(kfs)-1; i++ {
		b.WriteByte(')')
	}
	return b.String()
}

// easedExpr translates an easing curve into encoder expression syntax over
// the clamped progress expression p.
func easedExpr(e geometry.Easing, p string) string {
	c := fmt.Sprintf("clip(%s,0,1)", p)
	switch e {
	case geometry.EaseIn:
		return fmt.Sprintf("pow(%s,3)", c)
	case geometry.EaseOut:
		return fmt.Sprintf("(1-pow(1-%s,3))", c)
	case geometry.EaseInOut:
		return fmt.Sprintf("if(lt(%s,0.5),4*pow(%s,3),1-pow(-2*%s+2,3)/2)", c, c, c)
	case geometry.EaseHold:
		return fmt.Sprintf("gte(%s,1)", c)
	default:
		return c
	}
}

// evenize truncates one pixel from odd dimensions. Only an unusable result
// is an error.
func evenize(v int) (int, error) {
	v -= v % 2
	if v <= 0 {
		return 0, ErrOddDimension
	}
	return v, nil
}
