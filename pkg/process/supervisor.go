package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Spec describes a program to start
type Spec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// Handle is a started program. Both streams must be drained before Wait.
type Handle interface {
	PID() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the program exits and returns its exit code,
	// -1 when it was terminated by a signal.
	Wait() (int, error)
}

// Supervisor starts programs in their own process group and signals them
type Supervisor interface {
	Spawn(spec Spec) (Handle, error)
	SignalGroup(pid int, sig syscall.Signal) error
}

// ExecSupervisor is the os/exec backed Supervisor
type ExecSupervisor struct{}

// NewExecSupervisor creates a new supervisor
func NewExecSupervisor() *ExecSupervisor {
	return &ExecSupervisor{}
}

// Spawn starts spec as the leader of a new process group.
func (s *ExecSupervisor) Spawn(spec Spec) (Handle, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	return &execHandle{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// SignalGroup delivers sig to every process in the group led by pid.
func (s *ExecSupervisor) SignalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("%w: no process running (pid %d)", ErrSignal, pid)
	}
	if err := signalGroup(pid, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrSignal, err)
	}
	return nil
}

type execHandle struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (h *execHandle) PID() int          { return h.cmd.Process.Pid }
func (h *execHandle) Stdout() io.Reader { return h.stdout }
func (h *execHandle) Stderr() io.Reader { return h.stderr }

func (h *execHandle) Wait() (int, error) {
	err := h.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("%w: %v", ErrStream, err)
}
