// Package track talks to the local segmentation server that backs AI crop
// mode. The server accepts a base64 JPEG/PNG frame plus a prompt (points,
// box or text) and answers with a run-length encoded mask and a normalized
// bounding box.
package track

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cropaway/cropengine/internal/geometry"
	"github.com/cropaway/cropengine/internal/mask"
)

// ErrServerError wraps error responses from the segmentation server.
var ErrServerError = errors.New("segmentation server error")

// Client is a segmentation server client. Zero value is not usable; use
// NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the server at baseURL, e.g.
// "http://127.0.0.1:9876".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Health reports whether the server is reachable and a model is loaded.
func (c *Client) Health(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Status      string `json:"status"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Status == "ok" && body.ModelLoaded, nil
}

// Initialize asks the server to load a model. An empty modelID keeps the
// server's default.
func (c *Client) Initialize(ctx context.Context, modelID string) error {
	payload := map[string]string{}
	if modelID != "" {
		payload["model_id"] = modelID
	}
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/initialize", payload, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("%w: %s", ErrServerError, body.Message)
	}
	return nil
}

// Result is one segmentation answer: the mask for the frame, its bounding
// box in normalized coordinates, and the tracked object identity.
type Result struct {
	Mask       *mask.Mask
	Box        geometry.Rect
	Confidence float64
	ObjectID   string
}

// SegmentBox segments the object inside a normalized bounding box.
func (c *Client) SegmentBox(ctx context.Context, frame []byte, box geometry.Rect) (*Result, error) {
	payload := map[string]any{
		"image": base64.StdEncoding.EncodeToString(frame),
		"box": map[string]float64{
			"x": box.X, "y": box.Y, "width": box.Width, "height": box.Height,
		},
	}
	return c.segment(ctx, "/segment/box", payload)
}

// SegmentPoints segments from normalized point prompts. Label 1 marks
// foreground, 0 background.
func (c *Client) SegmentPoints(ctx context.Context, frame []byte, points []geometry.Point, labels []int) (*Result, error) {
	if len(points) != len(labels) {
		return nil, fmt.Errorf("%d points with %d labels", len(points), len(labels))
	}
	pts := make([][2]float64, len(points))
	for i, p := range points {
		pts[i] = [2]float64{p.X, p.Y}
	}
	payload := map[string]any{
		"image":  base64.StdEncoding.EncodeToString(frame),
		"points": pts,
		"labels": labels,
	}
	return c.segment(ctx, "/segment/points", payload)
}

// SegmentText segments by text prompt. Servers without a text-capable
// model answer 501, surfaced as ErrServerError.
func (c *Client) SegmentText(ctx context.Context, frame []byte, prompt string) (*Result, error) {
	payload := map[string]any{
		"image":  base64.StdEncoding.EncodeToString(frame),
		"prompt": prompt,
	}
	return c.segment(ctx, "/segment/text", payload)
}

type segmentResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	MaskB64     string  `json:"mask"`
	BoundingBox rectDTO `json:"bounding_box"`
	Confidence  float64 `json:"confidence"`
	ObjectID    string  `json:"object_id"`
}

type rectDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (c *Client) segment(ctx context.Context, path string, payload any) (*Result, error) {
	var body segmentResponse
	if err := c.post(ctx, path, payload, &body); err != nil {
		return nil, err
	}
	if body.Status != "ok" {
		return nil, fmt.Errorf("%w: %s", ErrServerError, body.Message)
	}

	m, err := mask.DecodeBase64(body.MaskB64)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	return &Result{
		Mask:       m,
		Box:        geometry.NewRect(body.BoundingBox.X, body.BoundingBox.Y, body.BoundingBox.Width, body.BoundingBox.Height),
		Confidence: body.Confidence,
		ObjectID:   body.ObjectID,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Error statuses still carry a JSON body with the failure message.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s returned %s: %w", path, resp.Status, err)
	}
	return nil
}
