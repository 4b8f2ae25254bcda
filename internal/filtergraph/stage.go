// Package filtergraph turns a crop timeline summary plus export settings
// into a structured, encoder-agnostic filter-chain description. A separate
// rendering step (render.go) owns the external encoder's textual syntax so
// the builder stays testable without running any process.
package filtergraph

import "strconv"

// Stage names. The set is closed: the renderer refuses anything else.
const (
	StageCrop       = "crop"       // crop the main video stream
	StageMaskCrop   = "mask_crop"  // identical crop applied to the mask input
	StageAlphaMerge = "alphamerge" // mask becomes the alpha channel
	StageBackground = "background" // solid color source for non-alpha export
	StageOverlay    = "overlay"    // composite masked frame over background
	StageScale      = "scale"      // resize to even dimensions
	StageFormat     = "format"     // pixel format conversion
)

// Arg is one typed parameter of a stage, serialized by the renderer.
type Arg struct {
	Key   string
	Value string
}

// Stage is a named filter step with ordered parameters.
type Stage struct {
	Name string
	Args []Arg
}

func (s Stage) arg(key string) (string, bool) {
	for _, a := range s.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IntArg returns the integer parameter or 0.
func (s Stage) IntArg(key string) int {
	v, ok := s.arg(key)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

// StrArg returns the string parameter or "".
func (s Stage) StrArg(key string) string {
	v, _ := s.arg(key)
	return v
}

func argInt(key string, v int) Arg {
	return Arg{Key: key, Value: strconv.Itoa(v)}
}

func argStr(key, v string) Arg {
	return Arg{Key: key, Value: v}
}

func cropStage(w, h, x, y int) Stage {
	return Stage{Name: StageCrop, Args: []Arg{
		argInt("w", w), argInt("h", h), argInt("x", x), argInt("y", y),
	}}
}

func cropExprStage(w, h int, xExpr, yExpr string) Stage {
	return Stage{Name: StageCrop, Args: []Arg{
		argInt("w", w), argInt("h", h), argStr("x_expr", xExpr), argStr("y_expr", yExpr),
	}}
}

func maskCropStage(w, h, x, y int) Stage {
	return Stage{Name: StageMaskCrop, Args: []Arg{
		argInt("w", w), argInt("h", h), argInt("x", x), argInt("y", y),
	}}
}

func scaleStage(w, h int) Stage {
	return Stage{Name: StageScale, Args: []Arg{argInt("w", w), argInt("h", h)}}
}

func formatStage(pixFmt string) Stage {
	return Stage{Name: StageFormat, Args: []Arg{argStr("pix_fmt", pixFmt)}}
}

func backgroundStage(color string, w, h int) Stage {
	return Stage{Name: StageBackground, Args: []Arg{
		argStr("color", color), argInt("w", w), argInt("h", h),
	}}
}

// MaskAsset references rendered mask files the encoder consumes by path.
// Sequence assets use a printf-style pattern and a frame rate.
type MaskAsset struct {
	Path      string
	Sequence  bool
	FrameRate float64
}

// Graph is the complete filter-chain description handed to the encoder
// collaborator together with the encoder selection.
type Graph struct {
	Stages      []Stage
	Encoder     Selection
	Mask        *MaskAsset
	PixelFormat string
	// Output dimensions after cropping and even-rounding.
	OutputWidth  int
	OutputHeight int
}

// HasStage reports whether a stage with the given name is present.
func (g *Graph) HasStage(name string) bool {
	for _, s := range g.Stages {
		if s.Name == name {
			return true
		}
	}
	return false
}

// FindStage returns the first stage with the given name.
func (g *Graph) FindStage(name string) (Stage, bool) {
	for _, s := range g.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}
