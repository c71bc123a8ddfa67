// Package mocks provides test doubles for the runner's collaborators.
package mocks

import (
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/benchrunner/benchrunner/pkg/process"
)

// MockSupervisor starts fake programs instead of real processes.
// Programs either finish on their own with the configured exit code and
// output, or block until they are signaled or released.
type MockSupervisor struct {
	mu          sync.Mutex
	nextPID     int
	handles     map[int]*MockHandle
	specs       []process.Spec
	signals     []Signal
	spawnError  error
	signalError error

	// ExitCode, Stdout and Stderr describe how programs finish.
	ExitCode int
	Stdout   string
	Stderr   string
	// Block keeps programs running until SignalGroup or Release.
	Block bool
}

// Signal records a SignalGroup call
type Signal struct {
	PID    int
	Signal syscall.Signal
}

// NewMockSupervisor creates a supervisor whose programs exit with 0
func NewMockSupervisor() *MockSupervisor {
	return &MockSupervisor{
		nextPID: 1000,
		handles: make(map[int]*MockHandle),
	}
}

// Spawn implements process.Supervisor
func (m *MockSupervisor) Spawn(spec process.Spec) (process.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.specs = append(m.specs, spec)
	if m.spawnError != nil {
		return nil, fmt.Errorf("%w: %v", process.ErrSpawn, m.spawnError)
	}

	m.nextPID++
	h := newMockHandle(m.nextPID)
	m.handles[h.pid] = h
	if !m.Block {
		h.Finish(m.ExitCode, m.Stdout, m.Stderr)
	}
	return h, nil
}

// SignalGroup implements process.Supervisor. A successful signal finishes
// the program with -1.
func (m *MockSupervisor) SignalGroup(pid int, sig syscall.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signals = append(m.signals, Signal{PID: pid, Signal: sig})
	if m.signalError != nil {
		return fmt.Errorf("%w: %v", process.ErrSignal, m.signalError)
	}
	h, ok := m.handles[pid]
	if !ok {
		return fmt.Errorf("%w: no process running (pid %d)", process.ErrSignal, pid)
	}
	h.Finish(-1, "", "")
	return nil
}

// Release finishes every running program with code
func (m *MockSupervisor) Release(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		h.Finish(code, "", "")
	}
}

// SetSpawnError makes every Spawn fail
func (m *MockSupervisor) SetSpawnError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawnError = err
}

// SetSignalError makes every SignalGroup fail
func (m *MockSupervisor) SetSignalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalError = err
}

// Specs returns the programs Spawn was asked to start
func (m *MockSupervisor) Specs() []process.Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]process.Spec(nil), m.specs...)
}

// Signals returns the SignalGroup calls
func (m *MockSupervisor) Signals() []Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Signal(nil), m.signals...)
}

// MockHandle is a fake running program
type MockHandle struct {
	pid     int
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter
	once    sync.Once
	done    chan struct{}
	code    int
}

func newMockHandle(pid int) *MockHandle {
	h := &MockHandle{pid: pid, done: make(chan struct{})}
	h.stdoutR, h.stdoutW = io.Pipe()
	h.stderrR, h.stderrW = io.Pipe()
	return h
}

func (h *MockHandle) PID() int          { return h.pid }
func (h *MockHandle) Stdout() io.Reader { return h.stdoutR }
func (h *MockHandle) Stderr() io.Reader { return h.stderrR }

// Wait implements process.Handle
func (h *MockHandle) Wait() (int, error) {
	<-h.done
	return h.code, nil
}

// Finish writes the output and ends the program with code. Only the first
// call has an effect. The output is written asynchronously, so the streams
// must be drained.
func (h *MockHandle) Finish(code int, stdout, stderr string) {
	h.once.Do(func() {
		go func() {
			if stdout != "" {
				_, _ = io.WriteString(h.stdoutW, stdout)
			}
			_ = h.stdoutW.Close()
			if stderr != "" {
				_, _ = io.WriteString(h.stderrW, stderr)
			}
			_ = h.stderrW.Close()
			h.code = code
			close(h.done)
		}()
	})
}
