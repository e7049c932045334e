// Package job provides the sync Job aggregate and the SyncService that drives
// a master/dub synchronization through its pipeline stages.
// It also includes the repository interfaces used to keep finished jobs.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/dubsync/internal/job/id"
	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/timeline"
)

// State represents the current state of a Job.
type State string

const (
	// StateIdle indicates the job was created but has not started.
	StateIdle State = "IDLE"
	// StateRunning indicates the pipeline is executing.
	StateRunning State = "RUNNING"
	// StateDone indicates the output was rendered successfully.
	StateDone State = "DONE"
	// StateFailed indicates a pipeline stage failed and the job was aborted.
	StateFailed State = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StateIdle:    {StateRunning},
	StateRunning: {StateDone, StateFailed},
	StateDone:    {},
	StateFailed:  {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// Job represents one master/dub synchronization run.
// Every field is guarded by mu; callers outside the package read Clone()s.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// State is the current lifecycle state.
	State State
	// Progress is the percentage of completion (0-100).
	Progress int
	// Logs holds the human-readable checkpoint lines in order.
	Logs []string
	// Stage is the pipeline stage that failed, if any.
	Stage Stage
	// Error contains the error message if the job failed.
	Error string

	// MasterPath is the path to the master track.
	MasterPath string
	// DubPath is the path to the dubbed track.
	DubPath string
	// WorkDir receives intermediates and the rendered output.
	WorkDir string
	// PushToS3 indicates whether to publish the output to S3.
	PushToS3 bool

	// Master is the probed metadata of the master track.
	Master media.Info
	// Dub is the probed metadata of the dub track.
	Dub media.Info
	// Segments is the built timeline.
	Segments []timeline.Segment
	// OutputPath is the path to the rendered file.
	OutputPath string
	// OutputURL is the S3 URL if the output was published.
	OutputURL string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a new Job with a generated ID in IDLE state.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID in IDLE state.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		State:     StateIdle,
		Logs:      make([]string, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(state State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(state)
}

func (j *Job) transitionLocked(state State) error {
	if !canTransition(j.State, state) {
		return ErrInvalidTransition
	}

	j.State = state
	j.UpdatedAt = time.Now()

	switch state {
	case StateRunning:
		j.StartedAt = j.UpdatedAt
	case StateDone, StateFailed:
		j.CompletedAt = j.UpdatedAt
		j.Progress = 100
	}

	return nil
}

// Start transitions the job from IDLE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StateRunning)
}

// Complete transitions the job to DONE and forces progress to 100.
func (j *Job) Complete() error {
	return j.TransitionTo(StateDone)
}

// Fail transitions the job to FAILED, recording the failed stage and message.
// Progress is forced to 100.
func (j *Job) Fail(stage Stage, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StateFailed); err != nil {
		return err
	}
	j.Stage = stage
	j.Error = errMsg
	return nil
}

// GetState returns the current job state (thread-safe).
func (j *Job) GetState() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State
}

// GetProgress returns the current progress (thread-safe).
func (j *Job) GetProgress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Progress
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = min(max(progress, 0), 100)
	j.UpdatedAt = time.Now()
}

// AppendLog adds a line to the job log.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Logs = append(j.Logs, line)
	j.UpdatedAt = time.Now()
}

// LogLines returns a copy of the job log.
func (j *Job) LogLines() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return slices.Clone(j.Logs)
}

// SetMediaInfo records the probed master and dub metadata.
func (j *Job) SetMediaInfo(master, dub media.Info) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Master = master
	j.Dub = dub
	j.UpdatedAt = time.Now()
}

// SetSegments records the built timeline.
func (j *Job) SetSegments(segments []timeline.Segment) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Segments = slices.Clone(segments)
	j.UpdatedAt = time.Now()
}

// SetOutput sets the rendered file path and optional published URL.
func (j *Job) SetOutput(path, url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.OutputURL = url
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is DONE or FAILED.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State == StateDone || j.State == StateFailed
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:          j.ID,
		State:       j.State,
		Progress:    j.Progress,
		Logs:        slices.Clone(j.Logs),
		Stage:       j.Stage,
		Error:       j.Error,
		MasterPath:  j.MasterPath,
		DubPath:     j.DubPath,
		WorkDir:     j.WorkDir,
		PushToS3:    j.PushToS3,
		Master:      j.Master,
		Dub:         j.Dub,
		Segments:    slices.Clone(j.Segments),
		OutputPath:  j.OutputPath,
		OutputURL:   j.OutputURL,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
