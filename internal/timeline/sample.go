package timeline

import (
	"github.com/cropaway/cropengine/internal/geometry"
)

// Sample returns the crop geometry at time t. It is a pure function of
// (timeline, t): identical inputs yield bit-identical output, so it is safe
// to call from any number of workers.
//
// Times before the first keyframe clamp to the first, times at or after the
// last clamp to the last. Between a bracketing pair the segment progress is
// shaped by the earlier keyframe's easing and geometry fields interpolate
// linearly in eased progress.
func Sample(tl *Timeline, t float64) (geometry.Geometry, error) {
	kfs := tl.Keyframes
	if len(kfs) == 0 {
		return geometry.Geometry{}, ErrNoKeyframes
	}
	if len(kfs) == 1 || t <= kfs[0].Time {
		return kfs[0].Geometry, nil
	}
	if t >= kfs[len(kfs)-1].Time {
		return kfs[len(kfs)-1].Geometry, nil
	}

	// Locate k_i.Time <= t < k_{i+1}.Time.
	lo := 0
	for i := 0; i < len(kfs)-1; i++ {
		if t >= kfs[i].Time && t < kfs[i+1].Time {
			lo = i
			break
		}
	}
	prev, next := kfs[lo], kfs[lo+1]

	span := next.Time - prev.Time
	if span <= 0 {
		return prev.Geometry, nil
	}
	s := prev.Easing.Ease((t - prev.Time) / span)
	return interpolate(prev.Geometry, next.Geometry, s), nil
}

// interpolate blends two geometries of the same mode field by field.
func interpolate(a, b geometry.Geometry, s float64) geometry.Geometry {
	switch a.Mode {
	case geometry.ModeRectangle:
		out := a
		out.Rect = geometry.LerpRect(a.Rect, b.Rect, s)
		return out
	case geometry.ModeCircle:
		out := a
		out.Center = geometry.LerpPoint(a.Center, b.Center, s)
		out.Radius = geometry.Lerp(a.Radius, b.Radius, s)
		return out
	case geometry.ModeFreehand:
		// Mismatched vertex counts hold the earlier polygon for the whole
		// segment. Defined degenerate policy, not a failure.
		if len(a.Vertices) != len(b.Vertices) {
			return a
		}
		out := a
		out.Vertices = make([]geometry.Point, len(a.Vertices))
		for i := range a.Vertices {
			out.Vertices[i] = geometry.LerpPoint(a.Vertices[i], b.Vertices[i], s)
		}
		return out
	case geometry.ModeAI:
		// Tracker output is already one sample per output frame; step to
		// the earlier sample instead of inventing intermediate boxes.
		return a
	}
	return a
}
