//go:build !windows

package process_test

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/process"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("sh not available: %v", err)
	}
}

func drain(t *testing.T, h process.Handle) (string, string) {
	t.Helper()
	var (
		wg             sync.WaitGroup
		stdout, stderr []byte
	)
	wg.Add(2)
	go func() { defer wg.Done(); stdout, _ = io.ReadAll(h.Stdout()) }()
	go func() { defer wg.Done(); stderr, _ = io.ReadAll(h.Stderr()) }()
	wg.Wait()
	return string(stdout), string(stderr)
}

func TestExecSupervisor_ExitCodeAndStreams(t *testing.T) {
	requireShell(t)
	sup := process.NewExecSupervisor()

	h, err := sup.Spawn(process.Spec{Command: "sh", Args: []string{"-c", "echo out; echo err >&2; exit 3"}})
	require.NoError(t, err)
	require.Greater(t, h.PID(), 0)

	stdout, stderr := drain(t, h)
	code, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, 3, code)
	require.Equal(t, "out\n", stdout)
	require.Equal(t, "err\n", stderr)
}

func TestExecSupervisor_WorkingDirectory(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	h, err := process.NewExecSupervisor().Spawn(process.Spec{Command: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	stdout, _ := drain(t, h)
	code, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, 0, code)

	resolved, err := exec.Command("sh", "-c", "cd "+dir+" && pwd -P").Output()
	require.NoError(t, err)
	require.Equal(t, string(resolved), stdout)
}

func TestExecSupervisor_SpawnFailure(t *testing.T) {
	_, err := process.NewExecSupervisor().Spawn(process.Spec{Command: "/nonexistent/benchmark-binary"})
	require.ErrorIs(t, err, process.ErrSpawn)
}

func TestExecSupervisor_SignalGroupReachesChildren(t *testing.T) {
	requireShell(t)
	sup := process.NewExecSupervisor()

	// The backgrounded sleep keeps stdout open; only a group signal lets
	// the streams reach EOF.
	h, err := sup.Spawn(process.Spec{Command: "sh", Args: []string{"-c", "sleep 30 & sleep 30"}})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, sup.SignalGroup(h.PID(), syscall.SIGTERM))

	done := make(chan int, 1)
	go func() {
		drain(t, h)
		code, _ := h.Wait()
		done <- code
	}()

	select {
	case code := <-done:
		require.Equal(t, -1, code)
	case <-time.After(10 * time.Second):
		t.Fatal("process group did not terminate")
	}
}

func TestExecSupervisor_SignalInvalidPID(t *testing.T) {
	err := process.NewExecSupervisor().SignalGroup(0, syscall.SIGTERM)
	require.ErrorIs(t, err, process.ErrSignal)
}

func TestExecSupervisor_SignalExitedGroup(t *testing.T) {
	requireShell(t)
	sup := process.NewExecSupervisor()

	h, err := sup.Spawn(process.Spec{Command: "sh", Args: []string{"-c", "exit 0"}})
	require.NoError(t, err)
	drain(t, h)
	_, err = h.Wait()
	require.NoError(t, err)

	require.ErrorIs(t, sup.SignalGroup(h.PID(), syscall.SIGTERM), process.ErrSignal)
}

func TestManager_ContextCancelRunsHandlersInReverse(t *testing.T) {
	m := process.NewManager(logger.CreateLoggerWithOutput("", "error", io.Discard))

	var (
		mu    sync.Mutex
		order []int
	)
	done := make(chan struct{})
	m.RegisterShutdownHandler(func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		close(done)
	})
	m.RegisterShutdownHandler(func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	require.True(t, m.IsRunning())
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown handlers did not run")
	}
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{2, 1}, order)
	require.False(t, m.IsRunning())
}

func TestManager_StopWithoutShutdown(t *testing.T) {
	m := process.NewManager(logger.CreateLoggerWithOutput("", "error", io.Discard))
	called := false
	m.RegisterShutdownHandler(func() { called = true })

	m.Start(context.Background())
	m.Stop()

	require.False(t, called)
	require.False(t, m.IsRunning())
}

func TestManager_SecondSignalForces(t *testing.T) {
	m := process.NewManager(logger.CreateLoggerWithOutput("", "error", io.Discard))

	shutdown := make(chan struct{})
	m.RegisterShutdownHandler(func() { close(shutdown) })
	forced := make(chan struct{})
	m.SetForceHandler(func() { close(forced) })

	m.Start(context.Background())
	defer m.Stop()

	m.Deliver(os.Interrupt)
	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("first signal did not run the shutdown handlers")
	}

	m.Deliver(os.Interrupt)
	select {
	case <-forced:
	case <-time.After(5 * time.Second):
		t.Fatal("second signal did not force")
	}
}

func TestManager_SingleSignalDoesNotForce(t *testing.T) {
	m := process.NewManager(logger.CreateLoggerWithOutput("", "error", io.Discard))

	shutdown := make(chan struct{})
	m.RegisterShutdownHandler(func() { close(shutdown) })
	var forced bool
	m.SetForceHandler(func() { forced = true })

	m.Start(context.Background())
	m.Deliver(syscall.SIGTERM)
	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not run the shutdown handlers")
	}
	m.Stop()

	require.False(t, forced)
}
