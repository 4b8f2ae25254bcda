package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropaway/cropengine/internal/filtergraph"
	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/timeline"
)

func sampleDocument(t *testing.T) *Document {
	t.Helper()
	tl := timeline.New(geometry.ModeCircle)
	require.NoError(t, tl.Add(timeline.Keyframe{
		Time:     0,
		Geometry: geometry.Circle(geometry.Point{X: 0.5, Y: 0.5}, 0.1),
		Easing:   geometry.EaseInOut,
	}))
	require.NoError(t, tl.Add(timeline.Keyframe{
		Time:     2,
		Geometry: geometry.Circle(geometry.Point{X: 0.7, Y: 0.3}, 0.25),
		Easing:   geometry.EaseLinear,
	}))

	doc := New("/videos/input.mp4", tl)
	doc.Video.Width = 1920
	doc.Video.Height = 1080
	doc.Video.Duration = 12.5
	doc.Settings = filtergraph.Settings{
		EnableAlpha: true,
		Codec:       "hevc",
		UseHardware: true,
		Platform:    filtergraph.PlatformDarwin,
		Quality:     50,
	}
	return doc
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := sampleDocument(t)
	path := filepath.Join(t.TempDir(), "session.yaml")

	require.NoError(t, Write(doc, path))
	got, err := Read(path)
	require.NoError(t, err)

	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("document round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRejectsModeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := `version: "1.0"
video:
  path: /videos/input.mp4
timeline:
  mode: rectangle
  keyframes:
    - time: 0
      geometry:
        mode: circle
        center: {x: 0.5, y: 0.5}
        radius: 0.2
      easing: linear
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := Read(path)
	assert.ErrorContains(t, err, "does not match timeline mode")
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestReadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	_, err := Read(path)
	assert.Error(t, err)
}
