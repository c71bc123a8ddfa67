// Package events provides the notification surface of a benchmark run
package events

import (
	"sync"

	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/types"
)

//go:generate mockgen -destination=../mocks/listener.go -package=mocks github.com/benchrunner/benchrunner/pkg/events Listener

// Listener observes a run. Calls for one job arrive in the order
// Setup, Spawned, Result; Error and Canceled may interleave.
type Listener interface {
	Initialize(q *types.Queue)
	Setup(job *types.Job, q *types.Queue)
	Spawned(proc process.Handle, job *types.Job, q *types.Queue)
	Result(job *types.Job, q *types.Queue)
	Error(err error, job *types.Job, q *types.Queue)
	Canceled(job *types.Job, q *types.Queue)
	Done(q *types.Queue)
}

// Stream identifies an output stream of a job
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// OutputListener is implemented by listeners that want raw output chunks.
// Output is called from the stream goroutines, never after Result.
type OutputListener interface {
	Output(job *types.Job, stream Stream, chunk []byte)
}

// Nop implements Listener with no-ops; embed it to override a subset
type Nop struct{}

func (Nop) Initialize(*types.Queue)                          {}
func (Nop) Setup(*types.Job, *types.Queue)                   {}
func (Nop) Spawned(process.Handle, *types.Job, *types.Queue) {}
func (Nop) Result(*types.Job, *types.Queue)                  {}
func (Nop) Error(error, *types.Job, *types.Queue)            {}
func (Nop) Canceled(*types.Job, *types.Queue)                {}
func (Nop) Done(*types.Queue)                                {}

// Bus fans notifications out to listeners in registration order
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners []entry
}

type entry struct {
	id       int
	listener Listener
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l and returns a function that removes it
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners = append(b.listeners, entry{id: id, listener: l})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.listeners {
			if e.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of registered listeners
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *Bus) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Listener, len(b.listeners))
	for i, e := range b.listeners {
		out[i] = e.listener
	}
	return out
}

func (b *Bus) Initialize(q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Initialize(q)
	}
}

func (b *Bus) Setup(job *types.Job, q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Setup(job, q)
	}
}

func (b *Bus) Spawned(proc process.Handle, job *types.Job, q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Spawned(proc, job, q)
	}
}

func (b *Bus) Result(job *types.Job, q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Result(job, q)
	}
}

func (b *Bus) Error(err error, job *types.Job, q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Error(err, job, q)
	}
}

func (b *Bus) Canceled(job *types.Job, q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Canceled(job, q)
	}
}

func (b *Bus) Done(q *types.Queue) {
	for _, l := range b.snapshot() {
		l.Done(q)
	}
}

// Output forwards a chunk to every listener implementing OutputListener
func (b *Bus) Output(job *types.Job, stream Stream, chunk []byte) {
	for _, l := range b.snapshot() {
		if ol, ok := l.(OutputListener); ok {
			ol.Output(job, stream, chunk)
		}
	}
}

var (
	_ Listener       = (*Bus)(nil)
	_ OutputListener = (*Bus)(nil)
	_ Listener       = Nop{}
)
