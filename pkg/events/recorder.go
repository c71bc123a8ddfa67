package events

import (
	"fmt"
	"sync"

	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// Kind names a notification
type Kind string

const (
	KindInitialize Kind = "initialize"
	KindSetup      Kind = "setup"
	KindSpawned    Kind = "spawned"
	KindResult     Kind = "result"
	KindError      Kind = "error"
	KindCanceled   Kind = "canceled"
	KindDone       Kind = "done"
)

// Event is one recorded notification. QueueID is -1 for queue-level events.
type Event struct {
	Kind    Kind           `json:"kind"`
	QueueID int            `json:"queueId"`
	State   types.JobState `json:"state,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (e Event) String() string {
	if e.QueueID < 0 {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s:%d", e.Kind, e.QueueID)
}

// Recorder is a Listener that keeps an ordered log of notifications
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(kind Kind, job *types.Job, err error) {
	ev := Event{Kind: kind, QueueID: -1}
	if job != nil {
		ev.QueueID = job.QueueID
		ev.State = job.State()
	}
	if err != nil {
		ev.Error = err.Error()
	}

	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded log
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Sequence returns the log as strings such as "setup:0" or "done"
func (r *Recorder) Sequence() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// Count returns how many events of kind were recorded
func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears the log
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) Initialize(*types.Queue) {
	r.add(KindInitialize, nil, nil)
}

func (r *Recorder) Setup(job *types.Job, _ *types.Queue) {
	r.add(KindSetup, job, nil)
}

func (r *Recorder) Spawned(_ process.Handle, job *types.Job, _ *types.Queue) {
	r.add(KindSpawned, job, nil)
}

func (r *Recorder) Result(job *types.Job, _ *types.Queue) {
	r.add(KindResult, job, nil)
}

func (r *Recorder) Error(err error, job *types.Job, _ *types.Queue) {
	r.add(KindError, job, err)
}

func (r *Recorder) Canceled(job *types.Job, _ *types.Queue) {
	r.add(KindCanceled, job, nil)
}

func (r *Recorder) Done(*types.Queue) {
	r.add(KindDone, nil, nil)
}
