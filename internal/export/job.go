package export

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/cropaway/cropengine/internal/filtergraph"
	"github.com/cropaway/cropengine/internal/mask"
	"github.com/cropaway/cropengine/internal/probe"
	"github.com/cropaway/cropengine/internal/timeline"
)

// ErrCancelled marks an export stopped through Cancel before completion.
var ErrCancelled = errors.New("export cancelled")

// State is the lifecycle phase of an export job. Transitions only move
// forward; Completed, Failed and Cancelled are terminal.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateMaskPreparation State = "mask_preparation"
	StateGraphBuilding   State = "graph_building"
	StateEncoding        State = "encoding"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
	StateCancelled       State = "cancelled"
)

// Terminal reports whether the state ends the job lifecycle.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Request describes one export to run.
type Request struct {
	Input    string
	Output   string
	Source   probe.SourceProps
	Timeline *timeline.Timeline
	Settings filtergraph.Settings
	Quality  int
	// Masks resolves mask references of externally tracked geometry, keyed
	// by the reference string embedded in each keyframe.
	Masks map[string]*mask.Mask
	// OnProgress, when set, receives the completion fraction in [0,1] as
	// the job advances. Called from the worker goroutine; keep it fast.
	OnProgress func(float64)
}

// Result is the terminal outcome of a job, delivered on the manager's
// result channel.
type Result struct {
	JobID  uuid.UUID
	Output string
	State  State
	Err    error
}

// Job is a submitted export. State and progress are safe to read
// concurrently with the running export.
type Job struct {
	ID  uuid.UUID
	req Request

	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	progress float64
}

func newJob(req Request) *Job {
	return &Job{ID: uuid.New(), req: req, state: StateIdle}
}

// State returns the current lifecycle phase.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the completion fraction in [0,1], never decreasing.
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.Terminal() {
		j.state = s
	}
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	if p > 1 {
		p = 1
	}
	advanced := p > j.progress
	if advanced {
		j.progress = p
	}
	sink := j.req.OnProgress
	j.mu.Unlock()

	if advanced && sink != nil {
		sink(p)
	}
}
