package types_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benchrunner/benchrunner/pkg/types"
)

func TestJobState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    types.JobState
		terminal bool
	}{
		{types.JobStateQueued, false},
		{types.JobStateSuccess, true},
		{types.JobStateFailure, true},
		{types.JobStateCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestJob_TransitionIsMonotonic(t *testing.T) {
	job := types.NewJob()
	if job.State() != types.JobStateQueued {
		t.Fatalf("expected new job to be QUEUED, got %s", job.State())
	}

	if job.Transition(types.JobStateQueued) {
		t.Error("QUEUED -> QUEUED must be refused")
	}
	if !job.Transition(types.JobStateCanceled) {
		t.Fatal("QUEUED -> CANCELED must be allowed")
	}

	for _, next := range []types.JobState{types.JobStateSuccess, types.JobStateFailure, types.JobStateQueued} {
		if job.Transition(next) {
			t.Errorf("CANCELED -> %s must be refused", next)
		}
	}
	if job.State() != types.JobStateCanceled {
		t.Errorf("expected CANCELED, got %s", job.State())
	}
}

func TestJob_FirstFailureWins(t *testing.T) {
	job := types.NewJob()
	first := errors.New("first")

	if !job.Fail(first) {
		t.Fatal("expected first failure to be recorded")
	}
	if job.Fail(errors.New("second")) {
		t.Error("expected second failure to be refused")
	}
	if job.Err() != first {
		t.Errorf("expected first error, got %v", job.Err())
	}
	if job.State() != types.JobStateFailure {
		t.Errorf("expected FAILURE, got %s", job.State())
	}
}

func TestJob_FailAfterCancelKeepsState(t *testing.T) {
	job := types.NewJob()
	job.Transition(types.JobStateCanceled)

	if job.Fail(errors.New("late")) {
		t.Error("expected failure after cancel to be refused")
	}
	if job.Err() != nil {
		t.Errorf("expected no error on canceled job, got %v", job.Err())
	}
}

func TestJob_Snapshot(t *testing.T) {
	job := types.NewJob()
	job.QueueID = 3
	job.BenchmarkName = "fib -tc 1"
	job.ShellArgs = []string{"--n", "30"}
	job.AppendStdout([]byte("hello "))
	job.AppendStdout([]byte("world"))
	job.AppendStderr([]byte("warn"))
	job.MarkStarted(42, time.Unix(100, 0))
	job.SetRuntime(1.5)
	job.Fail(errors.New("non-zero exit status: 2"))

	snap := job.Snapshot()
	if snap.Stdout != "hello world" || snap.Stderr != "warn" {
		t.Errorf("unexpected captured output: %q / %q", snap.Stdout, snap.Stderr)
	}
	if snap.PID != 42 || snap.Runtime != 1.5 || snap.StartTime == nil {
		t.Errorf("unexpected runtime fields: %+v", snap)
	}
	if snap.Error != "non-zero exit status: 2" {
		t.Errorf("unexpected error text %q", snap.Error)
	}

	snap.ShellArgs[0] = "mutated"
	if job.ShellArgs[0] != "--n" {
		t.Error("snapshot must not alias the job's args")
	}

	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("snapshot should marshal: %v", err)
	}
}

func TestQueue_Aggregates(t *testing.T) {
	q := types.NewQueue(types.SystemInfo{Threads: 4}, types.ProjectInfo{Name: "suite"}, time.Now())
	for i, expected := range []float64{2, 3.5} {
		job := types.NewJob()
		job.QueueID = i
		job.ExpectedRuntime = expected
		job.ResultFile = []string{"a.txt", "b.txt"}[i]
		job.SetRuntime(expected / 2)
		q.Append(job)
	}

	if q.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", q.Len())
	}
	if got := q.TotalExpectedRuntime(); got != 5.5 {
		t.Errorf("TotalExpectedRuntime() = %v, want 5.5", got)
	}
	if got := q.TotalRuntime(); got != 2.75 {
		t.Errorf("TotalRuntime() = %v, want 2.75", got)
	}
	files := q.ResultFiles()
	if len(files) != 2 || files[0] != "a.txt" || files[1] != "b.txt" {
		t.Errorf("unexpected result files %v", files)
	}

	q.SetCurrent(1)
	if q.Current() != q.Jobs[1] {
		t.Error("cursor should point at the second job")
	}
	q.SetCurrent(2)
	if q.Current() != nil {
		t.Error("out of range cursor should yield nil")
	}

	counts := q.CountByState()
	if counts[types.JobStateQueued] != 2 {
		t.Errorf("expected 2 queued jobs, got %v", counts)
	}
}

func TestBenchmarkDefinition_EffectiveRepeats(t *testing.T) {
	if got := (types.BenchmarkDefinition{}).EffectiveRepeats(); got != 1 {
		t.Errorf("default repeats = %d, want 1", got)
	}
	if got := (types.BenchmarkDefinition{Repeats: 3}).EffectiveRepeats(); got != 3 {
		t.Errorf("repeats = %d, want 3", got)
	}
}

func TestBenchmarkConfig_ExecCwd(t *testing.T) {
	cfg := &types.BenchmarkConfig{}
	if cfg.ExecCwd() != "." {
		t.Errorf("default exec cwd = %q, want .", cfg.ExecCwd())
	}
	cfg.WorkDir = "/srv/bench"
	if cfg.ExecCwd() != "/srv/bench" {
		t.Errorf("exec cwd = %q", cfg.ExecCwd())
	}
}
