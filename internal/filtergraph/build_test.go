package filtergraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/probe"
	"github.com/cropaway/cropengine/internal/timeline"
)

var src1080 = probe.SourceProps{Width: 1920, Height: 1080, FrameRate: 30, Codec: "h264"}

func TestBuildStaticRectangleCrop(t *testing.T) {
	// Single-keyframe rectangle export: pixel-exact crop, no mask stage.
	sum := Summary{
		Mode:     geometry.ModeRectangle,
		Static:   true,
		Geometry: geometry.Rectangle(geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}),
	}
	g, err := Build(src1080, Settings{}, sum, nil)
	require.NoError(t, err)

	crop, ok := g.FindStage(StageCrop)
	require.True(t, ok)
	want := cropStage(960, 540, 192, 108)
	if diff := cmp.Diff(want, crop); diff != "" {
		t.Errorf("crop stage mismatch (-want +got):\n%s", diff)
	}

	assert.False(t, g.HasStage(StageAlphaMerge))
	assert.False(t, g.HasStage(StageMaskCrop))
	assert.Equal(t, 960, g.OutputWidth)
	assert.Equal(t, 540, g.OutputHeight)
	assert.Equal(t, "libx264", g.Encoder.Name)
}

func TestBuildEvenDimensionsFromOddSource(t *testing.T) {
	odd := probe.SourceProps{Width: 1365, Height: 767, Codec: "h264"}
	sum := Summary{
		Mode:     geometry.ModeRectangle,
		Static:   true,
		Geometry: geometry.Rectangle(geometry.FullFrame()),
	}
	g, err := Build(odd, Settings{PreserveFullFrame: true}, sum, nil)
	require.NoError(t, err)
	assert.Equal(t, 1364, g.OutputWidth)
	assert.Equal(t, 766, g.OutputHeight)

	scale, ok := g.FindStage(StageScale)
	require.True(t, ok)
	assert.Equal(t, 1364, scale.IntArg("w"))
	assert.Equal(t, 766, scale.IntArg("h"))
}

func TestBuildZeroFrameFails(t *testing.T) {
	_, err := Build(probe.SourceProps{Width: 1, Height: 720, Codec: "h264"}, Settings{}, Summary{
		Mode:     geometry.ModeRectangle,
		Static:   true,
		Geometry: geometry.Rectangle(geometry.FullFrame()),
	}, nil)
	assert.ErrorIs(t, err, ErrOddDimension)
}

func TestBuildPreserveFullFrameSkipsCrop(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeRectangle,
		Static:   true,
		Geometry: geometry.Rectangle(geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}),
	}
	g, err := Build(src1080, Settings{PreserveFullFrame: true}, sum, nil)
	require.NoError(t, err)
	assert.False(t, g.HasStage(StageCrop))
	assert.Equal(t, 1920, g.OutputWidth)
	assert.Equal(t, 1080, g.OutputHeight)
}

func TestBuildAnimatedRectangleUsesExpressions(t *testing.T) {
	tl := timeline.New(geometry.ModeRectangle)
	require.NoError(t, tl.Add(timeline.Keyframe{
		Time:     0,
		Geometry: geometry.Rectangle(geometry.Rect{X: 0.0, Y: 0.0, Width: 0.5, Height: 0.5}),
		Easing:   geometry.EaseLinear,
	}))
	require.NoError(t, tl.Add(timeline.Keyframe{
		Time:     2,
		Geometry: geometry.Rectangle(geometry.Rect{X: 0.4, Y: 0.2, Width: 0.5, Height: 0.5}),
		Easing:   geometry.EaseLinear,
	}))

	sum := Summary{
		Mode:      geometry.ModeRectangle,
		Static:    false,
		Geometry:  tl.Keyframes[0].Geometry,
		Keyframes: tl.Keyframes,
	}
	g, err := Build(src1080, Settings{}, sum, nil)
	require.NoError(t, err)

	crop, ok := g.FindStage(StageCrop)
	require.True(t, ok)
	assert.Equal(t, 960, crop.IntArg("w"))
	assert.Equal(t, 540, crop.IntArg("h"))
	assert.Contains(t, crop.StrArg("x_expr"), "if(lt(t,2.0000)")
	assert.Contains(t, crop.StrArg("y_expr"), "clip")
}

func TestBuildCircleCompositesMask(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeCircle,
		Static:   true,
		Geometry: geometry.Circle(geometry.Point{X: 0.5, Y: 0.5}, 0.2),
	}
	asset := &MaskAsset{Path: "/tmp/mask.png"}

	g, err := Build(src1080, Settings{EnableAlpha: true}, sum, asset)
	require.NoError(t, err)
	assert.True(t, g.HasStage(StageCrop))
	assert.True(t, g.HasStage(StageMaskCrop))
	assert.True(t, g.HasStage(StageAlphaMerge))
	assert.False(t, g.HasStage(StageOverlay))
	assert.Equal(t, "yuva420p", g.PixelFormat)

	// Bounding box of radius 0.2 around center: x 0.3..0.7, y 0.3..0.7.
	crop, _ := g.FindStage(StageCrop)
	assert.Equal(t, 768, crop.IntArg("w"))
	assert.Equal(t, 432, crop.IntArg("h"))
	assert.Equal(t, 576, crop.IntArg("x"))
	assert.Equal(t, 324, crop.IntArg("y"))
}

func TestBuildCircleWithoutAlphaBlendsToBackground(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeCircle,
		Static:   true,
		Geometry: geometry.Circle(geometry.Point{X: 0.5, Y: 0.5}, 0.2),
	}
	g, err := Build(src1080, Settings{}, sum, &MaskAsset{Path: "/tmp/mask.png"})
	require.NoError(t, err)
	assert.True(t, g.HasStage(StageBackground))
	assert.True(t, g.HasStage(StageOverlay))
	assert.Equal(t, "yuv420p", g.PixelFormat)

	bg, _ := g.FindStage(StageBackground)
	assert.Equal(t, "black", bg.StrArg("color"))
}

func TestBuildMaskedRequiresAsset(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeCircle,
		Static:   true,
		Geometry: geometry.Circle(geometry.Point{X: 0.5, Y: 0.5}, 0.2),
	}
	_, err := Build(src1080, Settings{}, sum, nil)
	assert.Error(t, err)
}

func TestBuildDegenerateFreehandIsPassthrough(t *testing.T) {
	// Scenario: two-vertex freehand yields full frame and no crop/mask.
	sum := Summary{
		Mode:     geometry.ModeFreehand,
		Static:   true,
		Geometry: geometry.Freehand([]geometry.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.9}}),
	}
	g, err := Build(src1080, Settings{}, sum, nil)
	require.NoError(t, err)
	assert.False(t, g.HasStage(StageCrop))
	assert.False(t, g.HasStage(StageAlphaMerge))
	assert.Equal(t, 1920, g.OutputWidth)
	assert.Equal(t, 1080, g.OutputHeight)
}

func TestBuildAnimatedFreehandKeepsMaskWhenFirstKeyframeDegenerate(t *testing.T) {
	// The two-vertex opening keyframe grows into a triangle at 2s; the
	// mask sequence must stay wired in, not collapse to a passthrough.
	two := geometry.Freehand([]geometry.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.9}})
	tri := geometry.Freehand([]geometry.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.1}, {X: 0.5, Y: 0.9}})
	sum := Summary{
		Mode:     geometry.ModeFreehand,
		Static:   false,
		Geometry: two,
		Keyframes: []timeline.Keyframe{
			{Time: 0, Geometry: two},
			{Time: 2, Geometry: tri},
		},
	}
	asset := &MaskAsset{Path: "/tmp/mask_%06d.png", Sequence: true, FrameRate: 30}

	g, err := Build(src1080, Settings{EnableAlpha: true}, sum, asset)
	require.NoError(t, err)
	require.NotNil(t, g.Mask)
	assert.True(t, g.HasStage(StageMaskCrop))
	assert.True(t, g.HasStage(StageAlphaMerge))
}

func TestBuildAICropsSuppliedBox(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeAI,
		Static:   true,
		Geometry: geometry.AIBox(geometry.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}, "frame0"),
	}
	g, err := Build(src1080, Settings{EnableAlpha: true}, sum, &MaskAsset{Path: "/tmp/seq_%06d.png", Sequence: true, FrameRate: 30})
	require.NoError(t, err)
	crop, _ := g.FindStage(StageCrop)
	assert.Equal(t, 960, crop.IntArg("w"))
	assert.Equal(t, 540, crop.IntArg("h"))
	assert.Equal(t, 480, crop.IntArg("x"))
	assert.Equal(t, 270, crop.IntArg("y"))
	assert.True(t, g.HasStage(StageAlphaMerge))
}

func TestSelectEncoderTable(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		hw       bool
		platform Platform
		want     string
		wantErr  bool
	}{
		{"h264 software", "h264", false, PlatformLinux, "libx264", false},
		{"h264 videotoolbox", "h264", true, PlatformDarwin, "h264_videotoolbox", false},
		{"h264 nvenc", "h264", true, PlatformLinux, "h264_nvenc", false},
		{"hevc software", "h265", false, PlatformDarwin, "libx265", false},
		{"hevc nvenc windows", "hevc", true, PlatformWindows, "hevc_nvenc", false},
		{"vp9 software", "vp9", false, PlatformLinux, "libvpx-vp9", false},
		{"vp9 hardware unsupported", "vp9", true, PlatformLinux, "", true},
		{"av1 hardware darwin unsupported", "av1", true, PlatformDarwin, "", true},
		{"av1 nvenc", "av1", true, PlatformLinux, "av1_nvenc", false},
		{"unknown codec", "prores", false, PlatformLinux, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := SelectEncoder(tt.codec, tt.hw, tt.platform)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedCodec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Name)
			assert.Equal(t, tt.hw, sel.Hardware)
		})
	}
}

func TestBuildUnsupportedCodecFailsBeforeStages(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeRectangle,
		Static:   true,
		Geometry: geometry.Rectangle(geometry.FullFrame()),
	}
	_, err := Build(probe.SourceProps{Width: 1920, Height: 1080, Codec: "mpeg2video"}, Settings{}, sum, nil)
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestBuildDeterminism(t *testing.T) {
	sum := Summary{
		Mode:     geometry.ModeCircle,
		Static:   true,
		Geometry: geometry.Circle(geometry.Point{X: 0.4, Y: 0.6}, 0.15),
	}
	a, err := Build(src1080, Settings{EnableAlpha: true}, sum, &MaskAsset{Path: "m.png"})
	require.NoError(t, err)
	b, err := Build(src1080, Settings{EnableAlpha: true}, sum, &MaskAsset{Path: "m.png"})
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("graphs differ (-a +b):\n%s", diff)
	}
}
