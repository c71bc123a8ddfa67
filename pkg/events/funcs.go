package events

import (
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// Funcs adapts optional callbacks to a Listener. Nil fields are skipped.
type Funcs struct {
	OnInitialize func(q *types.Queue)
	OnSetup      func(job *types.Job, q *types.Queue)
	OnSpawned    func(proc process.Handle, job *types.Job, q *types.Queue)
	OnResult     func(job *types.Job, q *types.Queue)
	OnError      func(err error, job *types.Job, q *types.Queue)
	OnCanceled   func(job *types.Job, q *types.Queue)
	OnDone       func(q *types.Queue)
	OnOutput     func(job *types.Job, stream Stream, chunk []byte)
}

func (f Funcs) Initialize(q *types.Queue) {
	if f.OnInitialize != nil {
		f.OnInitialize(q)
	}
}

func (f Funcs) Setup(job *types.Job, q *types.Queue) {
	if f.OnSetup != nil {
		f.OnSetup(job, q)
	}
}

func (f Funcs) Spawned(proc process.Handle, job *types.Job, q *types.Queue) {
	if f.OnSpawned != nil {
		f.OnSpawned(proc, job, q)
	}
}

func (f Funcs) Result(job *types.Job, q *types.Queue) {
	if f.OnResult != nil {
		f.OnResult(job, q)
	}
}

func (f Funcs) Error(err error, job *types.Job, q *types.Queue) {
	if f.OnError != nil {
		f.OnError(err, job, q)
	}
}

func (f Funcs) Canceled(job *types.Job, q *types.Queue) {
	if f.OnCanceled != nil {
		f.OnCanceled(job, q)
	}
}

func (f Funcs) Done(q *types.Queue) {
	if f.OnDone != nil {
		f.OnDone(q)
	}
}

func (f Funcs) Output(job *types.Job, stream Stream, chunk []byte) {
	if f.OnOutput != nil {
		f.OnOutput(job, stream, chunk)
	}
}
