package track

import (
	"fmt"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/mask"
	"github.com/cropaway/cropengine/internal/timeline"
)

// Sample is one tracked frame: when it was sampled plus the server's
// segmentation answer.
type Sample struct {
	Time float64
	Result
}

// Keyframes turns tracked samples into an AI-mode timeline and the mask
// table the exporter resolves references against. Sample order does not
// matter; duplicate timestamps are rejected like any other keyframe insert.
func Keyframes(samples []Sample) (*timeline.Timeline, map[string]*mask.Mask, error) {
	tl := timeline.New(geometry.ModeAI)
	masks := make(map[string]*mask.Mask, len(samples))
	for i, s := range samples {
		ref := fmt.Sprintf("track_%06d", i)
		if err := tl.Add(timeline.Keyframe{
			Time:     s.Time,
			Geometry: geometry.AIBox(s.Box, ref),
			Easing:   geometry.EaseHold,
		}); err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", i, err)
		}
		masks[ref] = s.Mask
	}
	return tl, masks, nil
}
