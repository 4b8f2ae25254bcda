// Package export runs crop exports through a fixed lifecycle: validation,
// mask preparation, graph building, encoding. A manager owns a FIFO queue
// and a bounded worker pool so encoder processes never pile up.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cropaway/cropengine/internal/encoder"
	"github.com/cropaway/cropengine/internal/filtergraph"
	"github.com/cropaway/cropengine/internal/timeline"
)

// Mask preparation owns the first slice of the progress range; encoding
// fills the rest.
const maskProgressShare = 0.1

const queueCapacity = 64

// Manager queues and executes export jobs.
type Manager struct {
	cfg Config
	enc encoder.Encoder
	log *logrus.Logger

	queue   chan *Job
	results chan Result

	mu     sync.Mutex
	closed bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NewManager builds a manager. enc is the encoder collaborator; tests pass
// a fake, production passes encoder.NewFFmpeg.
func NewManager(cfg Config, enc encoder.Encoder, log *logrus.Logger) *Manager {
	cfg.applyDefaults()
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		cfg:     cfg,
		enc:     enc,
		log:     log,
		queue:   make(chan *Job, queueCapacity),
		results: make(chan Result, queueCapacity),
	}
}

// Start launches the worker pool. Jobs submitted before Start wait in the
// queue.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.group, ctx = errgroup.WithContext(ctx)
	for w := 0; w < m.cfg.MaxConcurrentJobs; w++ {
		m.group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job, ok := <-m.queue:
					if !ok {
						return nil
					}
					m.run(ctx, job)
				}
			}
		})
	}
}

// Submit enqueues an export. The returned job exposes state and progress
// while the result channel delivers the terminal outcome.
func (m *Manager) Submit(req Request) (*Job, error) {
	if req.Timeline == nil || len(req.Timeline.Keyframes) == 0 {
		return nil, timeline.ErrNoKeyframes
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("export manager closed")
	}
	job := newJob(req)
	select {
	case m.queue <- job:
		return job, nil
	default:
		return nil, errors.New("export queue is full")
	}
}

// Cancel stops a job. Queued jobs terminate without running; a running job
// has its encoder process killed through context cancellation.
func (m *Manager) Cancel(job *Job) bool {
	job.mu.Lock()
	defer job.mu.Unlock()
	if job.state.Terminal() {
		return false
	}
	if job.cancel != nil {
		job.cancel()
		return true
	}
	job.state = StateCancelled
	return true
}

// Results delivers one terminal Result per submitted job.
func (m *Manager) Results() <-chan Result {
	return m.results
}

// Close stops accepting work and, after the queue drains, shuts the
// workers down. Wait must follow.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.queue)
}

// Wait blocks until all workers exit, then closes the result channel. A
// manager that was never started has no workers to wait for.
func (m *Manager) Wait() error {
	var err error
	if m.group != nil {
		err = m.group.Wait()
	}
	if m.cancel != nil {
		m.cancel()
	}
	close(m.results)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Manager) run(ctx context.Context, job *Job) {
	job.mu.Lock()
	if job.state.Terminal() {
		// Cancelled while queued.
		job.mu.Unlock()
		m.emit(job, ErrCancelled)
		return
	}
	jobCtx, cancel := context.WithCancel(ctx)
	job.cancel = cancel
	job.mu.Unlock()
	defer cancel()

	log := m.log.WithFields(logrus.Fields{
		"job":    job.ID,
		"input":  job.req.Input,
		"output": job.req.Output,
	})
	log.Info("export started")

	err := m.execute(jobCtx, job, log)
	if err != nil && (errors.Is(err, context.Canceled) || jobCtx.Err() != nil) {
		err = ErrCancelled
	}
	m.emit(job, err)

	switch {
	case err == nil:
		log.Info("export completed")
	case errors.Is(err, ErrCancelled):
		log.Warn("export cancelled")
	default:
		log.WithError(err).Error("export failed")
	}
}

func (m *Manager) emit(job *Job, err error) {
	switch {
	case err == nil:
		job.setProgress(1)
		job.setState(StateCompleted)
	case errors.Is(err, ErrCancelled):
		job.setState(StateCancelled)
	default:
		job.setState(StateFailed)
	}
	m.results <- Result{JobID: job.ID, Output: job.req.Output, State: job.State(), Err: err}
}

func (m *Manager) execute(ctx context.Context, job *Job, log *logrus.Entry) error {
	req := job.req

	job.setState(StateValidating)
	if err := validate(req); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "cropengine_")
	if err != nil {
		return err
	}
	if m.cfg.KeepTempAssets {
		log.WithField("dir", dir).Info("keeping temp assets")
	} else {
		defer os.RemoveAll(dir)
	}

	var asset *filtergraph.MaskAsset
	maskShare := 0.0
	if needsMask(req.Timeline) {
		maskShare = maskProgressShare
		job.setState(StateMaskPreparation)
		asset, err = prepareMasks(ctx, job, dir, m.cfg.MaskWorkers, func(frac float64) {
			job.setProgress(maskShare * frac)
		})
		if err != nil {
			return fmt.Errorf("mask preparation: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	job.setState(StateGraphBuilding)
	graph, err := filtergraph.Build(req.Source, req.Settings, summarize(req.Timeline), asset)
	if err != nil {
		return fmt.Errorf("graph building: %w", err)
	}

	job.setState(StateEncoding)
	encJob := encoder.Job{
		Input:    req.Input,
		Output:   req.Output,
		Graph:    graph,
		Duration: req.Source.Duration,
		Quality:  req.Quality,
	}
	return m.enc.Encode(ctx, encJob, func(frac float64) {
		job.setProgress(maskShare + (1-maskShare)*frac)
	})
}

// summarize condenses the timeline for the pure graph builder.
func summarize(tl *timeline.Timeline) filtergraph.Summary {
	return filtergraph.Summary{
		Mode:      tl.Mode,
		Static:    tl.Static(),
		Geometry:  tl.Keyframes[0].Geometry,
		Keyframes: tl.Keyframes,
	}
}

func validate(req Request) error {
	if req.Input == "" {
		return errors.New("no input path")
	}
	if req.Output == "" {
		return errors.New("no output path")
	}
	if req.Source.Width <= 0 || req.Source.Height <= 0 {
		return fmt.Errorf("source resolution %dx%d", req.Source.Width, req.Source.Height)
	}
	for i, kf := range req.Timeline.Keyframes {
		if err := kf.Geometry.Validate(); err != nil {
			return fmt.Errorf("keyframe %d: %w", i, err)
		}
	}
	if needsMask(req.Timeline) && !req.Timeline.Static() {
		if req.Source.FrameRate <= 0 || req.Source.Duration <= 0 {
			return errors.New("animated mask export needs source frame rate and duration")
		}
	}
	return nil
}
