// Package runner executes a benchmark queue one job at a time
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/benchrunner/benchrunner/internal/engine"
	pcontext "github.com/benchrunner/benchrunner/pkg/context"
	"github.com/benchrunner/benchrunner/pkg/events"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/queue"
	"github.com/benchrunner/benchrunner/pkg/sysinfo"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
	"github.com/benchrunner/benchrunner/pkg/validation"
)

const readChunkSize = 32 * 1024

// Environment tells the runner where benchmark processes start
type Environment interface {
	ExecCwd() string
}

type workDir string

func (w workDir) ExecCwd() string { return string(w) }

// Config wires a Runner to its collaborators
type Config struct {
	Benchmarks queue.BenchmarkProvider
	System     sysinfo.Provider
	Validator  validation.Validator

	// Env defaults to Benchmarks when it implements Environment, else ".".
	Env Environment
	// Supervisor defaults to process.NewExecSupervisor().
	Supervisor process.Supervisor
	Logger     logger.Logger
	Queue      queue.Options
	// CancelSignal is sent to the process group on Cancel, SIGTERM by default.
	CancelSignal syscall.Signal
}

// Runner runs the jobs of a queue strictly in order. Cancel may be called
// from any goroutine; everything else happens on the goroutine calling Run.
type Runner struct {
	benchmarks   queue.BenchmarkProvider
	system       sysinfo.Provider
	validator    validation.Validator
	env          Environment
	supervisor   process.Supervisor
	logger       logger.Logger
	queueOpts    queue.Options
	cancelSignal syscall.Signal
	bus          *events.Bus
	fs           *utils.FileSystemUtils

	mu        sync.Mutex
	queue     *types.Queue
	activePID int
	canceled  bool
	running   bool
	// announced is false while the current job's setup is not yet
	// delivered; a Cancel in that window is held back until it is.
	announced     bool
	pendingCancel bool
}

// New creates a Runner
func New(cfg Config) (*Runner, error) {
	switch {
	case cfg.Benchmarks == nil:
		return nil, fmt.Errorf("%w: benchmark provider", ErrMissingDependency)
	case cfg.System == nil:
		return nil, fmt.Errorf("%w: system info provider", ErrMissingDependency)
	case cfg.Validator == nil:
		return nil, fmt.Errorf("%w: validator", ErrMissingDependency)
	}

	r := &Runner{
		benchmarks:   cfg.Benchmarks,
		system:       cfg.System,
		validator:    cfg.Validator,
		env:          cfg.Env,
		supervisor:   cfg.Supervisor,
		logger:       cfg.Logger,
		queueOpts:    cfg.Queue,
		cancelSignal: cfg.CancelSignal,
		bus:          events.NewBus(),
		fs:           utils.NewFileSystemUtils(),
	}

	if r.env == nil {
		if env, ok := cfg.Benchmarks.(Environment); ok {
			r.env = env
		} else {
			r.env = workDir(".")
		}
	}
	if r.supervisor == nil {
		r.supervisor = process.NewExecSupervisor()
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	if r.cancelSignal == 0 {
		r.cancelSignal = syscall.SIGTERM
	}

	return r, nil
}

// Subscribe registers a listener and returns a function removing it
func (r *Runner) Subscribe(l events.Listener) func() {
	return r.bus.Subscribe(l)
}

// Queue returns the queue of the current or last run, nil before the first
func (r *Runner) Queue() *types.Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue
}

// Canceled reports whether the current or last run was canceled
func (r *Runner) Canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Running reports whether Run is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Plan builds the queue a run would execute right now, without running it
func (r *Runner) Plan() (*types.Queue, error) {
	startedAt := time.Now()
	return queue.Build(r.benchmarks, r.system.SystemInfo(startedAt), r.system.ProjectInfo(), startedAt, r.queueOpts)
}

// Run builds a fresh queue and executes it. It returns after the done
// notification, or once a cancellation stopped the loop. Canceling ctx
// cancels the run.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.running = true
	previous := r.queue
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx = pcontext.WithOperation(pcontext.EnrichContext(ctx), "run")
	log := logger.WithContext(ctx, r.logger)

	q, err := r.Plan()
	if err != nil {
		return fmt.Errorf("failed to build queue: %w", err)
	}

	files := q.ResultFiles()
	if previous != nil {
		files = append(previous.ResultFiles(), files...)
	}
	if err := r.removeFiles(log, files); err != nil {
		log.Warn("Some result files could not be removed", logger.WithError(err))
	}

	r.mu.Lock()
	r.queue = q
	r.canceled = false
	r.activePID = 0
	r.announced = false
	r.pendingCancel = false
	q.SetCurrent(0)
	r.mu.Unlock()

	r.bus.Initialize(q)

	stop := context.AfterFunc(ctx, func() {
		if err := r.Cancel(); err != nil {
			log.Debug("Context cancellation ignored", logger.WithError(err))
		}
	})
	defer stop()

	for i := 0; ; i++ {
		if i >= q.Len() {
			r.bus.Done(q)
			return nil
		}
		if r.Canceled() && !r.cancelPending() {
			log.Info("Run canceled, skipping remaining jobs",
				logger.WithField("remaining", q.Len()-i))
			return nil
		}
		r.runJob(ctx, q, i)
	}
}

func (r *Runner) runJob(ctx context.Context, q *types.Queue, i int) {
	r.mu.Lock()
	q.SetCurrent(i)
	r.announced = false
	r.mu.Unlock()

	job := q.Job(i)
	ctx = pcontext.WithJob(ctx, job.QueueID, job.BenchmarkName)
	log := logger.WithContext(ctx, r.logger).WithTarget(job.BenchmarkName)

	r.bus.Setup(job, q)

	r.mu.Lock()
	r.announced = true
	pending := r.pendingCancel
	r.pendingCancel = false
	pid := r.activePID
	r.mu.Unlock()
	if pending {
		r.signalCanceled(job, q, pid)
	}

	code := r.execute(ctx, log, q, job)

	if job.State() == types.JobStateQueued {
		if code == 0 {
			job.Transition(types.JobStateSuccess)
		} else {
			err := fmt.Errorf("%w: %d", ErrNonZeroExit, code)
			if job.Fail(err) {
				r.bus.Error(err, job, q)
			}
		}
	}

	// The canceled job is still validated, so validation must outlive ctx.
	if res, ok := <-r.validator.Validate(context.WithoutCancel(ctx), job); ok {
		job.SetValidation(res)
	}

	log.Debug("Job finished",
		logger.WithField("state", job.State()),
		logger.WithField("exit_code", code),
		logger.WithField("runtime", job.Runtime()))
	r.bus.Result(job, q)
}

// execute spawns the job and waits for it; the result is the exit code,
// -1 when the program never ran or was killed by a signal.
func (r *Runner) execute(ctx context.Context, log logger.Logger, q *types.Queue, job *types.Job) int {
	spec := process.Spec{
		Command: job.ShellCommand,
		Args:    job.ShellArgs,
		Dir:     r.env.ExecCwd(),
	}

	r.mu.Lock()
	if r.canceled {
		r.mu.Unlock()
		log.Debug("Run canceled before spawn")
		return -1
	}
	start := time.Now()
	handle, err := r.supervisor.Spawn(spec)
	if err == nil {
		r.activePID = handle.PID()
		job.MarkStarted(handle.PID(), start)
	}
	r.mu.Unlock()

	if err != nil {
		job.SetRuntime(time.Since(start).Seconds())
		r.fail(job, q, err)
		return -1
	}

	r.bus.Spawned(handle, job, q)

	group, _ := engine.NewSafeGroup(ctx, log)
	group.Go("stdout", func() error {
		return r.pump(job, events.StreamStdout, handle.Stdout(), job.AppendStdout)
	})
	group.Go("stderr", func() error {
		return r.pump(job, events.StreamStderr, handle.Stderr(), job.AppendStderr)
	})
	streamErr := group.Wait()

	code, waitErr := handle.Wait()
	job.SetRuntime(time.Since(start).Seconds())

	r.mu.Lock()
	r.activePID = 0
	r.mu.Unlock()

	for _, err := range append(engine.Errors(streamErr), waitErr) {
		if err != nil {
			if !errors.Is(err, process.ErrStream) {
				err = fmt.Errorf("%w: %v", process.ErrStream, err)
			}
			r.fail(job, q, err)
		}
	}
	return code
}

func (r *Runner) pump(job *types.Job, stream events.Stream, src io.Reader, sink func([]byte)) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			sink(chunk)
			r.bus.Output(job, stream, chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			// keep the pipe flowing so the program cannot block on a full
			// buffer; what it writes from here on is dropped
			_, _ = io.Copy(io.Discard, src)
			return fmt.Errorf("%w: reading %s: %v", process.ErrStream, stream, err)
		}
	}
}

// fail is the shared error path: the first error of a job that has not
// finished yet decides its FAILURE, every error is notified.
func (r *Runner) fail(job *types.Job, q *types.Queue, err error) {
	job.Fail(err)
	r.bus.Error(err, job, q)
}

// Cancel marks the current job CANCELED, stops the run from advancing and
// signals the job's process group. A failed signal is reported through the
// error notification; the canceled notification is always emitted.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	q := r.queue
	var job *types.Job
	if q != nil {
		job = q.Current()
	}
	if job == nil {
		r.mu.Unlock()
		return ErrNoCurrentJob
	}
	job.Transition(types.JobStateCanceled)
	r.canceled = true
	pid := r.activePID
	if !r.announced {
		r.pendingCancel = true
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.signalCanceled(job, q, pid)
	return nil
}

func (r *Runner) cancelPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingCancel
}

// signalCanceled signals the process group of job and emits the canceled
// notification, preceded by an error one when the signal failed
func (r *Runner) signalCanceled(job *types.Job, q *types.Queue, pid int) {
	log := r.logger.WithTarget(job.BenchmarkName)
	log.Warn("Canceling benchmark run", logger.WithField("pid", pid))

	if err := r.supervisor.SignalGroup(pid, r.cancelSignal); err != nil {
		log.Error("Failed to signal process group", logger.WithError(err))
		r.fail(job, q, err)
	}

	r.bus.Canceled(job, q)
}
