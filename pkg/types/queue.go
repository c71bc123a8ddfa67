package types

import (
	"sync"
	"time"
)

// Queue is the ordered list of jobs for one run
type Queue struct {
	Jobs      []*Job
	System    SystemInfo
	Project   ProjectInfo
	StartedAt time.Time

	mu      sync.RWMutex
	current int
}

// NewQueue creates an empty queue for a run started at startedAt.
func NewQueue(system SystemInfo, project ProjectInfo, startedAt time.Time) *Queue {
	return &Queue{
		System:    system,
		Project:   project,
		StartedAt: startedAt,
	}
}

// Append adds a job at the end of the queue.
func (q *Queue) Append(job *Job) {
	q.Jobs = append(q.Jobs, job)
}

// Len returns the number of jobs.
func (q *Queue) Len() int {
	return len(q.Jobs)
}

// Job returns the job at index i, or nil when i is out of range.
func (q *Queue) Job(i int) *Job {
	if i < 0 || i >= len(q.Jobs) {
		return nil
	}
	return q.Jobs[i]
}

// SetCurrent moves the cursor to index i.
func (q *Queue) SetCurrent(i int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current = i
}

// CurrentIndex returns the cursor position.
func (q *Queue) CurrentIndex() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current
}

// Current returns the job under the cursor, or nil.
func (q *Queue) Current() *Job {
	return q.Job(q.CurrentIndex())
}

// TotalExpectedRuntime sums the configured runtime of every job, in seconds.
func (q *Queue) TotalExpectedRuntime() float64 {
	var total float64
	for _, job := range q.Jobs {
		total += job.ExpectedRuntime
	}
	return total
}

// TotalRuntime sums the measured runtime of every job, in seconds.
func (q *Queue) TotalRuntime() float64 {
	var total float64
	for _, job := range q.Jobs {
		total += job.Runtime()
	}
	return total
}

// ResultFiles lists the result file of every job in queue order.
func (q *Queue) ResultFiles() []string {
	files := make([]string, 0, len(q.Jobs))
	for _, job := range q.Jobs {
		files = append(files, job.ResultFile)
	}
	return files
}

// CountByState tallies jobs per state.
func (q *Queue) CountByState() map[JobState]int {
	counts := make(map[JobState]int)
	for _, job := range q.Jobs {
		counts[job.State()]++
	}
	return counts
}

// QueueSnapshot is the serialisable view of a queue
type QueueSnapshot struct {
	StartedAt            time.Time     `json:"startedAt"`
	System               SystemInfo    `json:"system"`
	Project              ProjectInfo   `json:"project"`
	Current              int           `json:"current"`
	TotalExpectedRuntime float64       `json:"totalExpectedRuntime"`
	TotalRuntime         float64       `json:"totalRuntime"`
	Jobs                 []JobSnapshot `json:"jobs"`
}

// Snapshot returns a copy of the queue and all of its jobs.
func (q *Queue) Snapshot() QueueSnapshot {
	snap := QueueSnapshot{
		StartedAt:            q.StartedAt,
		System:               q.System,
		Project:              q.Project,
		Current:              q.CurrentIndex(),
		TotalExpectedRuntime: q.TotalExpectedRuntime(),
		TotalRuntime:         q.TotalRuntime(),
		Jobs:                 make([]JobSnapshot, 0, len(q.Jobs)),
	}
	for _, job := range q.Jobs {
		snap.Jobs = append(snap.Jobs, job.Snapshot())
	}
	return snap
}
