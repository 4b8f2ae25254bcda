// Package probe resolves source video properties through an external media
// prober. The engine never parses container or codec bytes itself.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// SourceProps describes the source video as the filter-graph builder needs
// it. Dimensions are kept as probed; the builder owns even-rounding.
type SourceProps struct {
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	Duration  float64
}

// Prober supplies SourceProps for a source file reference.
type Prober interface {
	Probe(ctx context.Context, path string) (SourceProps, error)
}

// FFprobe shells out to ffprobe with JSON output.
type FFprobe struct {
	// Binary overrides the executable name, default "ffprobe".
	Binary string
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func (p *FFprobe) Probe(ctx context.Context, path string) (SourceProps, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	args := []string{
		"-hide_banner",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return SourceProps{}, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return SourceProps{}, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	props := SourceProps{}
	if out.Format.Duration != "" {
		props.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		props.Width = s.Width
		props.Height = s.Height
		props.Codec = s.CodecName
		props.FrameRate = parseFrameRate(s.RFrameRate)
		break
	}
	if props.Width == 0 || props.Height == 0 {
		return SourceProps{}, fmt.Errorf("ffprobe: no video stream in %s", path)
	}
	return props, nil
}

// parseFrameRate parses the ffprobe rational form, e.g. "30000/1001".
func parseFrameRate(rate string) float64 {
	var num, den int
	if _, err := fmt.Sscanf(rate, "%d/%d", &num, &den); err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
