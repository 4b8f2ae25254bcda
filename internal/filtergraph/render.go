package filtergraph

import (
	"fmt"
	"strings"
)

// Rendered is the textual form of a graph in the external encoder's filter
// syntax. The encoder collaborator splices it into its own invocation.
type Rendered struct {
	// Inputs lists additional inputs after the main video, each with the
	// options that must precede its -i flag.
	Inputs []Input
	// FilterComplex is set when the graph needs labeled streams (mask
	// compositing); VF is set for plain single-stream chains. Exactly one
	// of the two is non-empty unless the graph is a pure passthrough.
	FilterComplex string
	VF            string
	// OutputLabel maps the final labeled stream, e.g. "[vout]".
	OutputLabel string
	PixelFormat string
}

// Render serializes the stage list. It is the only place that knows the
// encoder's string grammar.
func Render(g *Graph) (Rendered, error) {
	r := Rendered{PixelFormat: g.PixelFormat}

	if g.Mask != nil {
		return renderComposite(g, r)
	}

	var chain []string
	for _, s := range g.Stages {
		switch s.Name {
		case StageCrop:
			chain = append(chain, cropFilter(s))
		case StageScale:
			chain = append(chain, fmt.Sprintf("scale=%d:%d", s.IntArg("w"), s.IntArg("h")))
		case StageFormat:
			chain = append(chain, fmt.Sprintf("format=%s", s.StrArg("pix_fmt")))
		default:
			return Rendered{}, fmt.Errorf("stage %q outside a mask composite", s.Name)
		}
	}
	r.VF = strings.Join(chain, ",")
	return r, nil
}

func renderComposite(g *Graph, r Rendered) (Rendered, error) {
	in := Input{Path: g.Mask.Path}
	if g.Mask.Sequence {
		in.Options = []string{"-framerate", fmt.Sprintf("%g", g.Mask.FrameRate)}
	} else {
		in.Options = []string{"-loop", "1"}
	}
	r.Inputs = append(r.Inputs, in)

	var (
		parts      []string
		crop       string
		maskCrop   string
		background string
		overlay    bool
		pixFmt     string
	)
	for _, s := range g.Stages {
		switch s.Name {
		case StageCrop:
			crop = cropFilter(s)
		case StageMaskCrop:
			maskCrop = fmt.Sprintf("crop=%d:%d:%d:%d", s.IntArg("w"), s.IntArg("h"), s.IntArg("x"), s.IntArg("y"))
		case StageAlphaMerge:
			// positional, handled below
		case StageBackground:
			background = fmt.Sprintf("color=c=%s:s=%dx%d", s.StrArg("color"), s.IntArg("w"), s.IntArg("h"))
		case StageOverlay:
			overlay = true
		case StageFormat:
			pixFmt = s.StrArg("pix_fmt")
		default:
			return Rendered{}, fmt.Errorf("unknown stage %q", s.Name)
		}
	}
	if crop == "" || maskCrop == "" {
		return Rendered{}, fmt.Errorf("mask composite requires crop and mask_crop stages")
	}

	parts = append(parts, fmt.Sprintf("[0:v]%s[fg]", crop))
	parts = append(parts, fmt.Sprintf("[1:v]%s,format=gray[m]", maskCrop))
	parts = append(parts, "[fg][m]alphamerge[fga]")

	last := "[fga]"
	if overlay {
		parts = append(parts, fmt.Sprintf("%s[bg]", background))
		parts = append(parts, "[bg][fga]overlay=shortest=1[comp]")
		last = "[comp]"
	}
	if pixFmt != "" {
		parts = append(parts, fmt.Sprintf("%sformat=%s[vout]", last, pixFmt))
		last = "[vout]"
	}

	r.FilterComplex = strings.Join(parts, ";")
	r.OutputLabel = last
	return r, nil
}

// Input is an additional encoder input with its preceding options.
type Input struct {
	Path    string
	Options []string
}

func cropFilter(s Stage) string {
	if x, ok := s.arg("x_expr"); ok {
		y := s.StrArg("y_expr")
		return fmt.Sprintf("crop=%d:%d:x='%s':y='%s'", s.IntArg("w"), s.IntArg("h"), x, y)
	}
	return fmt.Sprintf("crop=%d:%d:%d:%d", s.IntArg("w"), s.IntArg("h"), s.IntArg("x"), s.IntArg("y"))
}
