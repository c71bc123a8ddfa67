package types

import (
	"bytes"
	"sync"
	"time"
)

// Job is a single scheduled execution of one benchmark
type Job struct {
	QueueID         int
	BenchmarkID     string
	BenchmarkName   string
	ShellCommand    string
	ShellArgs       []string
	Threads         int
	Repeat          int
	Repeats         int
	ExpectedRuntime float64
	ResultFile      string

	mu         sync.Mutex
	state      JobState
	pid        int
	startTime  time.Time
	runtime    float64
	stdout     bytes.Buffer
	stderr     bytes.Buffer
	err        error
	validation *ValidationResult
}

// NewJob returns a job in the QUEUED state.
func NewJob() *Job {
	return &Job{state: JobStateQueued}
}

// State returns the current lifecycle state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Transition moves the job into a terminal state. It returns false and
// changes nothing when the job already left QUEUED.
func (j *Job) Transition(next JobState) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.CanTransitionTo(next) {
		return false
	}
	j.state = next
	return true
}

// Fail records err and moves the job to FAILURE. The first failure wins; a
// job that already reached a terminal state is left untouched.
func (j *Job) Fail(err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.CanTransitionTo(JobStateFailure) {
		return false
	}
	j.state = JobStateFailure
	j.err = err
	return true
}

// Err returns the recorded failure, nil unless the state is FAILURE.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// MarkStarted records the spawned process id and the start instant.
func (j *Job) MarkStarted(pid int, at time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pid = pid
	j.startTime = at
}

// PID returns the process id, 0 until the process was spawned.
func (j *Job) PID() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pid
}

// StartTime returns when the process was spawned.
func (j *Job) StartTime() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.startTime
}

// SetRuntime records the wall-clock runtime in seconds.
func (j *Job) SetRuntime(seconds float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runtime = seconds
}

// Runtime returns the wall-clock runtime in seconds.
func (j *Job) Runtime() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runtime
}

// AppendStdout appends a chunk of captured standard output.
func (j *Job) AppendStdout(p []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stdout.Write(p)
}

// AppendStderr appends a chunk of captured standard error.
func (j *Job) AppendStderr(p []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stderr.Write(p)
}

// Stdout returns everything captured on standard output so far.
func (j *Job) Stdout() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stdout.String()
}

// Stderr returns everything captured on standard error so far.
func (j *Job) Stderr() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stderr.String()
}

// SetValidation stores the validator's outcome.
func (j *Job) SetValidation(res ValidationResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.validation = &res
}

// Validation returns the validator's outcome, nil before validation.
func (j *Job) Validation() *ValidationResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.validation
}

// JobSnapshot is the serialisable view of a job
type JobSnapshot struct {
	QueueID         int               `json:"queueId"`
	BenchmarkID     string            `json:"benchmarkId"`
	BenchmarkName   string            `json:"benchmarkName"`
	ShellCommand    string            `json:"shellCommand"`
	ShellArgs       []string          `json:"shellArgs"`
	Threads         int               `json:"threads"`
	Repeat          int               `json:"repeat"`
	Repeats         int               `json:"repeats"`
	ExpectedRuntime float64           `json:"expectedRuntime"`
	ResultFile      string            `json:"resultFile"`
	State           JobState          `json:"state"`
	PID             int               `json:"pid,omitempty"`
	StartTime       *time.Time        `json:"startTime,omitempty"`
	Runtime         float64           `json:"runtime"`
	Stdout          string            `json:"stdout,omitempty"`
	Stderr          string            `json:"stderr,omitempty"`
	Error           string            `json:"error,omitempty"`
	Validation      *ValidationResult `json:"validation,omitempty"`
}

// Snapshot returns a consistent copy of the job.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := JobSnapshot{
		QueueID:         j.QueueID,
		BenchmarkID:     j.BenchmarkID,
		BenchmarkName:   j.BenchmarkName,
		ShellCommand:    j.ShellCommand,
		ShellArgs:       append([]string(nil), j.ShellArgs...),
		Threads:         j.Threads,
		Repeat:          j.Repeat,
		Repeats:         j.Repeats,
		ExpectedRuntime: j.ExpectedRuntime,
		ResultFile:      j.ResultFile,
		State:           j.state,
		PID:             j.pid,
		Runtime:         j.runtime,
		Stdout:          j.stdout.String(),
		Stderr:          j.stderr.String(),
		Validation:      j.validation,
	}
	if !j.startTime.IsZero() {
		started := j.startTime
		snap.StartTime = &started
	}
	if j.err != nil {
		snap.Error = j.err.Error()
	}
	return snap
}
