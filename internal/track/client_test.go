package track

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/mask"
)

func encodedMask(t *testing.T) string {
	t.Helper()
	m := mask.New(4, 4)
	for y := 1; y < 3; y++ {
		for x := 1; x < 3; x++ {
			m.Pix[y*4+x] = 0xff
		}
	}
	s, err := mask.EncodeBase64(m)
	require.NoError(t, err)
	return s
}

func TestSegmentBox(t *testing.T) {
	maskB64 := encodedMask(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/segment/box", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Image string             `json:"image"`
			Box   map[string]float64 `json:"box"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Image)
		assert.InDelta(t, 0.25, req.Box["x"], 1e-9)

		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"mask":         maskB64,
			"bounding_box": map[string]float64{"x": 0.25, "y": 0.25, "width": 0.5, "height": 0.5},
			"confidence":   0.93,
			"object_id":    "obj_1_abc12345",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.SegmentBox(context.Background(), []byte("frame-bytes"), geometry.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Mask.Width)
	assert.Equal(t, byte(0xff), res.Mask.At(1, 1))
	assert.Equal(t, byte(0), res.Mask.At(0, 0))
	assert.InDelta(t, 0.93, res.Confidence, 1e-9)
	assert.Equal(t, "obj_1_abc12345", res.ObjectID)
	assert.InDelta(t, 0.5, res.Box.Width, 1e-9)
}

func TestSegmentTextUnsupportedModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "text prompts not supported",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SegmentText(context.Background(), []byte("frame"), "the yellow bus")
	assert.ErrorIs(t, err, ErrServerError)
	assert.ErrorContains(t, err, "text prompts not supported")
}

func TestSegmentPointsLabelMismatch(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	_, err := c.SegmentPoints(context.Background(), []byte("frame"),
		[]geometry.Point{{X: 0.5, Y: 0.5}}, []int{1, 0})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"model_loaded": true,
			"model_id":     "facebook/sam-vit-huge",
		})
	}))
	defer srv.Close()

	ready, err := NewClient(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestInitializeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "Failed to load model",
		})
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Initialize(context.Background(), "facebook/sam-vit-huge")
	assert.ErrorIs(t, err, ErrServerError)
}

func TestInvalidMaskPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"mask":         "!!not-base64!!",
			"bounding_box": map[string]float64{},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SegmentBox(context.Background(), []byte("frame"), geometry.FullFrame())
	assert.ErrorContains(t, err, "decode mask")
}
