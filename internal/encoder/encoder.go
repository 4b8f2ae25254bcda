// Package encoder runs ffmpeg for a built filter graph and reports
// encoding progress. It owns process lifecycle; what to encode is decided
// upstream by the filtergraph package.
package encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cropaway/cropengine/internal/filtergraph"
)

const defaultQuality = 23

// Job is one encode invocation.
type Job struct {
	Input  string
	Output string
	Graph  *filtergraph.Graph
	// Duration of the source in seconds, used to turn output timestamps
	// into a completion fraction.
	Duration float64
	Quality  int
}

// Encoder encodes one job, calling progress with a fraction in [0,1].
// Implementations must keep the reported fraction monotonic.
type Encoder interface {
	Encode(ctx context.Context, job Job, progress func(float64)) error
}

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Binary string
	Log    *logrus.Logger
}

// NewFFmpeg returns an encoder using the ffmpeg on PATH.
func NewFFmpeg(log *logrus.Logger) *FFmpeg {
	return &FFmpeg{Binary: "ffmpeg", Log: log}
}

func (e *FFmpeg) Encode(ctx context.Context, job Job, progress func(float64)) error {
	rendered, err := filtergraph.Render(job.Graph)
	if err != nil {
		return err
	}

	args := buildArgs(job, rendered)
	if e.Log != nil {
		e.Log.WithFields(logrus.Fields{
			"encoder": job.Graph.Encoder.Name,
			"output":  job.Output,
		}).Debugf("ffmpeg %s", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, e.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	// ffmpeg writes -progress key=value records to stdout; stderr carries
	// the usual log noise we only surface on failure.
	parser := newProgressParser(job.Duration)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if frac, ok := parser.parseLine(scanner.Text()); ok && progress != nil {
			progress(frac)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		perr := &ProcessError{Err: err, Stderr: excerpt(stderr.String())}
		if exit, ok := err.(*exec.ExitError); ok {
			perr.ExitCode = exit.ExitCode()
		}
		return perr
	}

	if progress != nil {
		progress(1)
	}
	return nil
}

// buildArgs assembles the ffmpeg invocation: inputs first (each mask input
// preceded by its own options), then the filter, stream mapping, encoder
// and quality flags.
func buildArgs(job Job, r filtergraph.Rendered) []string {
	args := []string{"-y", "-i", job.Input}

	for _, in := range r.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}

	if r.FilterComplex != "" {
		args = append(args, "-filter_complex", r.FilterComplex)
		args = append(args, "-map", r.OutputLabel)
	} else if r.VF != "" {
		args = append(args, "-vf", r.VF)
	}
	args = append(args, "-map", "0:a?", "-c:a", "copy")

	args = append(args, "-c:v", job.Graph.Encoder.Name)
	args = append(args, qualityArgs(job.Graph.Encoder.Name, job.Quality)...)

	args = append(args, "-progress", "pipe:1", "-nostats")
	args = append(args, job.Output)
	return args
}

// qualityArgs maps a 0..100 quality knob onto the flag each encoder
// understands.
func qualityArgs(encoderName string, quality int) []string {
	if quality <= 0 {
		quality = defaultQuality
	}

	switch {
	case strings.HasSuffix(encoderName, "_videotoolbox"):
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case strings.HasSuffix(encoderName, "_nvenc"):
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	case encoderName == "libvpx-vp9":
		return []string{"-crf", fmt.Sprintf("%d", quality), "-b:v", "0"}
	default:
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// ProcessError carries the exit status and the tail of stderr from a
// failed encode.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg exited with code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// excerpt keeps the last few stderr lines, where ffmpeg prints the actual
// failure reason.
func excerpt(stderr string) string {
	const keep = 8
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n")
}
