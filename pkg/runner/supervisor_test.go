package runner_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benchrunner/benchrunner/pkg/events"
	"github.com/benchrunner/benchrunner/pkg/mocks"
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/runner"
	"github.com/benchrunner/benchrunner/pkg/sysinfo"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/validation"
)

func newMockRunner(t *testing.T, sup *mocks.MockSupervisor, threads int, defs ...types.BenchmarkDefinition) (*runner.Runner, *events.Recorder) {
	t.Helper()
	r, err := runner.New(runner.Config{
		Benchmarks: &types.BenchmarkConfig{WorkDir: "/bench", Definitions: defs},
		System:     sysinfo.Static{Threads: threads},
		Validator: validation.Func(func(context.Context, *types.Job) types.ValidationResult {
			return types.ValidationResult{Valid: true}
		}),
		Supervisor:   sup,
		CancelSignal: syscall.SIGINT,
	})
	require.NoError(t, err)

	rec := events.NewRecorder()
	r.Subscribe(rec)
	return r, rec
}

func TestRun_SpawnArguments(t *testing.T) {
	sup := mocks.NewMockSupervisor()
	r, _ := newMockRunner(t, sup, 8, types.BenchmarkDefinition{
		ID: "compress", Command: "./bench --level 9", Execute: true, Repeats: 2,
	})

	require.NoError(t, r.Run(context.Background()))

	specs := sup.Specs()
	require.Len(t, specs, 4)
	require.Equal(t, process.Spec{
		Command: "./bench",
		Args:    []string{"--level", "9", "./results/compress.single_core.0.result.txt", "-tc", "1"},
		Dir:     "/bench",
	}, specs[0])
	require.Equal(t, []string{"--level", "9", "./results/compress.single_core.1.result.txt", "-tc", "1"}, specs[1].Args)
	require.Equal(t, []string{"--level", "9", "./results/compress.multi_core.0.result.txt", "-tc", "8"}, specs[2].Args)
	require.Equal(t, []string{"--level", "9", "./results/compress.multi_core.1.result.txt", "-tc", "8"}, specs[3].Args)
}

func TestRun_CapturesOutput(t *testing.T) {
	sup := mocks.NewMockSupervisor()
	sup.Stdout = "score: 1200\n"
	sup.Stderr = "warming up\n"
	r, _ := newMockRunner(t, sup, 1, types.BenchmarkDefinition{ID: "a", Command: "a", Execute: true})

	require.NoError(t, r.Run(context.Background()))

	job := r.Queue().Jobs[0]
	require.Equal(t, "score: 1200\n", job.Stdout())
	require.Equal(t, "warming up\n", job.Stderr())
	require.Equal(t, types.JobStateSuccess, job.State())
}

func TestCancel_SignalsProcessGroup(t *testing.T) {
	sup := mocks.NewMockSupervisor()
	sup.Block = true
	r, rec := newMockRunner(t, sup, 1,
		types.BenchmarkDefinition{ID: "a", Command: "a", Execute: true},
		types.BenchmarkDefinition{ID: "b", Command: "b", Execute: true},
	)

	var pid int
	r.Subscribe(events.Funcs{OnSpawned: func(h process.Handle, _ *types.Job, _ *types.Queue) {
		pid = h.PID()
		require.NoError(t, r.Cancel())
	}})

	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, []mocks.Signal{{PID: pid, Signal: syscall.SIGINT}}, sup.Signals())
	require.Equal(t, []string{"initialize", "setup:0", "spawned:0", "canceled:0", "result:0"}, rec.Sequence())
	require.Len(t, sup.Specs(), 1)
}

func TestCancel_SignalFailureWhileRunning(t *testing.T) {
	sup := mocks.NewMockSupervisor()
	sup.Block = true
	sup.SetSignalError(errors.New("operation not permitted"))
	r, rec := newMockRunner(t, sup, 1,
		types.BenchmarkDefinition{ID: "a", Command: "a", Execute: true},
		types.BenchmarkDefinition{ID: "b", Command: "b", Execute: true},
	)

	r.Subscribe(events.Funcs{OnSpawned: func(process.Handle, *types.Job, *types.Queue) {
		require.NoError(t, r.Cancel())
		// The program survives the failed signal and exits by itself later.
		time.AfterFunc(50*time.Millisecond, func() { sup.Release(0) })
	}})

	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, []string{
		"initialize", "setup:0", "spawned:0", "error:0", "canceled:0", "result:0",
	}, rec.Sequence())

	job := r.Queue().Jobs[0]
	require.Equal(t, types.JobStateCanceled, job.State(), "a clean exit after cancel stays CANCELED")
	require.NoError(t, job.Err())
	require.Equal(t, types.JobStateQueued, r.Queue().Jobs[1].State())
}

func TestCancel_AfterRunFinished(t *testing.T) {
	sup := mocks.NewMockSupervisor()
	r, rec := newMockRunner(t, sup, 1, types.BenchmarkDefinition{ID: "a", Command: "a", Execute: true})
	require.NoError(t, r.Run(context.Background()))
	rec.Reset()

	require.NoError(t, r.Cancel())

	require.Equal(t, []string{"error:0", "canceled:0"}, rec.Sequence())
	require.Equal(t, types.JobStateSuccess, r.Queue().Jobs[0].State())
	require.Equal(t, []mocks.Signal{{PID: 0, Signal: syscall.SIGINT}}, sup.Signals())
}

// fakeHandle is a finished program whose streams and wait result are fixed
type fakeHandle struct {
	pid     int
	stdout  io.Reader
	stderr  io.Reader
	code    int
	waitErr error
}

func (h *fakeHandle) PID() int           { return h.pid }
func (h *fakeHandle) Stdout() io.Reader  { return h.stdout }
func (h *fakeHandle) Stderr() io.Reader  { return h.stderr }
func (h *fakeHandle) Wait() (int, error) { return h.code, h.waitErr }

// fakeSupervisor hands out one handle per Spawn, built by newHandle
type fakeSupervisor struct {
	mu        sync.Mutex
	spawned   int
	signaled  int
	newHandle func(pid int) *fakeHandle
}

func (s *fakeSupervisor) Spawn(process.Spec) (process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawned++
	return s.newHandle(2000 + s.spawned), nil
}

func (s *fakeSupervisor) SignalGroup(int, syscall.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signaled++
	return nil
}

func runWithFake(t *testing.T, sup *fakeSupervisor) (*runner.Runner, *events.Recorder) {
	t.Helper()
	cfg := &types.BenchmarkConfig{WorkDir: "/bench", Definitions: []types.BenchmarkDefinition{
		{ID: "a", Command: "a", Execute: true},
		{ID: "b", Command: "b", Execute: true},
	}}
	r, err := runner.New(runner.Config{
		Benchmarks: cfg,
		System:     sysinfo.Static{Threads: 1},
		Validator: validation.Func(func(context.Context, *types.Job) types.ValidationResult {
			return types.ValidationResult{Valid: true}
		}),
		Supervisor: sup,
	})
	require.NoError(t, err)

	rec := events.NewRecorder()
	r.Subscribe(rec)
	require.NoError(t, r.Run(context.Background()))
	return r, rec
}

func TestRun_StreamReadFailure(t *testing.T) {
	sup := &fakeSupervisor{newHandle: func(pid int) *fakeHandle {
		return &fakeHandle{
			pid:    pid,
			stdout: io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("pipe broke"))),
			stderr: strings.NewReader(""),
		}
	}}
	r, rec := runWithFake(t, sup)

	require.Equal(t, []string{
		"initialize",
		"setup:0", "spawned:0", "error:0", "result:0",
		"setup:1", "spawned:1", "error:1", "result:1",
		"done",
	}, rec.Sequence())

	for _, job := range r.Queue().Jobs {
		require.Equal(t, types.JobStateFailure, job.State())
		require.ErrorIs(t, job.Err(), process.ErrStream)
		require.Contains(t, job.Err().Error(), "pipe broke")
		require.Equal(t, "partial", job.Stdout())
	}
	require.Equal(t, 2, sup.spawned)
	require.Zero(t, sup.signaled)
}

func TestRun_WaitFailure(t *testing.T) {
	sup := &fakeSupervisor{newHandle: func(pid int) *fakeHandle {
		return &fakeHandle{
			pid:     pid,
			stdout:  strings.NewReader("ok"),
			stderr:  strings.NewReader(""),
			code:    -1,
			waitErr: errors.New("wait: no child processes"),
		}
	}}
	r, rec := runWithFake(t, sup)

	require.Equal(t, 2, rec.Count(events.KindError))
	require.Equal(t, 1, rec.Count(events.KindDone))
	for _, job := range r.Queue().Jobs {
		require.Equal(t, types.JobStateFailure, job.State())
		require.ErrorIs(t, job.Err(), process.ErrStream)
		require.Contains(t, job.Err().Error(), "no child processes")
	}
	require.Zero(t, sup.signaled)
}

// brokenThenFlowing fails its first read, then serves data until EOF
type brokenThenFlowing struct {
	failed bool
	rest   *strings.Reader
}

func (b *brokenThenFlowing) Read(p []byte) (int, error) {
	if !b.failed {
		b.failed = true
		return 0, errors.New("transient read error")
	}
	return b.rest.Read(p)
}

func TestRun_StreamFailureDrainsPipe(t *testing.T) {
	var readers []*brokenThenFlowing
	sup := &fakeSupervisor{newHandle: func(pid int) *fakeHandle {
		stdout := &brokenThenFlowing{rest: strings.NewReader(strings.Repeat("x", 256*1024))}
		readers = append(readers, stdout)
		return &fakeHandle{pid: pid, stdout: stdout, stderr: strings.NewReader("")}
	}}
	r, _ := runWithFake(t, sup)

	require.Len(t, readers, 2)
	for _, rd := range readers {
		require.Zero(t, rd.rest.Len(), "output after the error must still be consumed")
	}
	require.Empty(t, r.Queue().Jobs[0].Stdout())
	require.Equal(t, types.JobStateFailure, r.Queue().Jobs[0].State())
}
