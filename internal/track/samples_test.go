package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/mask"
	"github.com/cropaway/cropengine/internal/timeline"
)

func TestKeyframesFromSamples(t *testing.T) {
	m0 := mask.Full(8, 8)
	m1 := mask.New(8, 8)
	samples := []Sample{
		{Time: 0, Result: Result{Mask: m0, Box: geometry.Rect{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.3}, ObjectID: "obj_1"}},
		{Time: 0.5, Result: Result{Mask: m1, Box: geometry.Rect{X: 0.2, Y: 0.2, Width: 0.3, Height: 0.3}, ObjectID: "obj_1"}},
	}

	tl, masks, err := Keyframes(samples)
	require.NoError(t, err)

	require.Len(t, tl.Keyframes, 2)
	assert.Equal(t, geometry.ModeAI, tl.Mode)
	assert.Equal(t, geometry.EaseHold, tl.Keyframes[0].Easing)

	// Tracked boxes step, never interpolate.
	g, err := timeline.Sample(tl, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, g.Box.X, 1e-9)

	require.Len(t, masks, 2)
	assert.Same(t, m0, masks[tl.Keyframes[0].Geometry.MaskRef])
	assert.Same(t, m1, masks[tl.Keyframes[1].Geometry.MaskRef])
}

func TestKeyframesDuplicateTimestamp(t *testing.T) {
	samples := []Sample{
		{Time: 1, Result: Result{Box: geometry.Rect{X: 0, Y: 0, Width: 0.5, Height: 0.5}}},
		{Time: 1, Result: Result{Box: geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}}},
	}
	_, _, err := Keyframes(samples)
	assert.ErrorIs(t, err, timeline.ErrDuplicateTimestamp)
}
