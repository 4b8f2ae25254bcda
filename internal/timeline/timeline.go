// Package timeline owns the per-video keyframe list and its interpolation.
// A timeline has a single crop mode; switching modes clears keyframes whose
// payload no longer matches.
package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cropaway/cropengine/internal/geometry"
)

// ErrNoKeyframes is returned by Sample on an empty timeline. Callers decide
// whether that means "no crop" or a hard failure.
var ErrNoKeyframes = errors.New("timeline has no keyframes")

// ErrDuplicateTimestamp rejects a second keyframe at an existing time.
var ErrDuplicateTimestamp = errors.New("keyframe timestamp already present")

// Keyframe pins a crop geometry at a timestamp. Easing shapes the segment
// from this keyframe to the next one.
type Keyframe struct {
	Time     float64           `yaml:"time"`
	Geometry geometry.Geometry `yaml:"geometry"`
	Easing   geometry.Easing   `yaml:"easing"`
}

// Timeline is a time-sorted, timestamp-unique keyframe list for one video.
// A single keyframe means constant geometry for the whole duration.
type Timeline struct {
	Mode      geometry.Mode `yaml:"mode"`
	Keyframes []Keyframe    `yaml:"keyframes"`
}

// New creates an empty timeline in the given mode.
func New(mode geometry.Mode) *Timeline {
	return &Timeline{Mode: mode}
}

// Add inserts a keyframe keeping the list sorted. Negative timestamps,
// mode mismatches, invalid geometry and duplicate timestamps are rejected.
func (tl *Timeline) Add(kf Keyframe) error {
	if kf.Time < 0 {
		return fmt.Errorf("%w: negative timestamp %.3f", geometry.ErrInvalidGeometry, kf.Time)
	}
	if kf.Geometry.Mode != tl.Mode {
		return fmt.Errorf("%w: keyframe mode %q on %q timeline", geometry.ErrInvalidGeometry, kf.Geometry.Mode, tl.Mode)
	}
	if err := kf.Geometry.Validate(); err != nil {
		return err
	}
	if kf.Easing == "" {
		kf.Easing = geometry.EaseLinear
	}
	idx := sort.Search(len(tl.Keyframes), func(i int) bool {
		return tl.Keyframes[i].Time >= kf.Time
	})
	if idx < len(tl.Keyframes) && tl.Keyframes[idx].Time == kf.Time {
		return fmt.Errorf("%w: t=%.3f", ErrDuplicateTimestamp, kf.Time)
	}
	tl.Keyframes = append(tl.Keyframes, Keyframe{})
	copy(tl.Keyframes[idx+1:], tl.Keyframes[idx:])
	tl.Keyframes[idx] = kf
	return nil
}

// Remove deletes the keyframe at the exact timestamp. Returns false when no
// keyframe exists there.
func (tl *Timeline) Remove(t float64) bool {
	idx, ok := tl.index(t)
	if !ok {
		return false
	}
	tl.Keyframes = append(tl.Keyframes[:idx], tl.Keyframes[idx+1:]...)
	return true
}

// Update replaces the geometry and easing of the keyframe at the timestamp.
func (tl *Timeline) Update(t float64, g geometry.Geometry, e geometry.Easing) error {
	idx, ok := tl.index(t)
	if !ok {
		return fmt.Errorf("no keyframe at t=%.3f", t)
	}
	if g.Mode != tl.Mode {
		return fmt.Errorf("%w: keyframe mode %q on %q timeline", geometry.ErrInvalidGeometry, g.Mode, tl.Mode)
	}
	if err := g.Validate(); err != nil {
		return err
	}
	tl.Keyframes[idx].Geometry = g
	tl.Keyframes[idx].Easing = e
	return nil
}

// SetMode switches the crop mode, dropping keyframes whose payload no
// longer matches.
func (tl *Timeline) SetMode(mode geometry.Mode) {
	if mode == tl.Mode {
		return
	}
	tl.Mode = mode
	kept := tl.Keyframes[:0]
	for _, kf := range tl.Keyframes {
		if kf.Geometry.Mode == mode {
			kept = append(kept, kf)
		}
	}
	tl.Keyframes = kept
}

// Static reports whether every keyframe carries the same geometry, which
// lets the exporter render a single mask instead of a per-frame sequence.
// Empty and single-keyframe timelines are static.
func (tl *Timeline) Static() bool {
	for i := 1; i < len(tl.Keyframes); i++ {
		if !tl.Keyframes[i].Geometry.Equal(tl.Keyframes[0].Geometry) {
			return false
		}
	}
	return true
}

func (tl *Timeline) index(t float64) (int, bool) {
	idx := sort.Search(len(tl.Keyframes), func(i int) bool {
		return tl.Keyframes[i].Time >= t
	})
	if idx < len(tl.Keyframes) && tl.Keyframes[idx].Time == t {
		return idx, true
	}
	return 0, false
}
