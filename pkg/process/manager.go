// Package process provides process supervision and signal handling
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/benchrunner/benchrunner/pkg/logger"
)

// ExitCodeInterrupted is the conventional exit status after SIGINT
const ExitCodeInterrupted = 130

// Manager turns OS signals into an orderly shutdown. The first signal (or
// the end of the context passed to Start) runs the shutdown handlers, which
// cancel the running benchmark. A second signal while the benchmark is still
// stopping runs the force handler.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	force            func()
	signals          chan os.Signal
	stop             chan struct{}
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool
}

// NewManager creates a new process manager. The default force handler exits
// the process with ExitCodeInterrupted.
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger: log,
		force:  func() { os.Exit(ExitCodeInterrupted) },
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run in reverse
// registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// SetForceHandler replaces what happens on a second signal
func (m *Manager) SetForceHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.force = handler
}

// Start listens for SIGINT, SIGTERM and SIGHUP until Stop is called
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.signals = make(chan os.Signal, 2)
	stop, signals := m.stop, m.signals
	m.mu.Unlock()

	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(signals)

		select {
		case <-stop:
			return
		case <-ctx.Done():
		case sig := <-signals:
			m.logger.Info("Received signal, canceling run (repeat to force exit)",
				logger.WithField("signal", sig))
		}
		m.handleShutdown()

		select {
		case <-stop:
		case sig := <-signals:
			m.logger.Warn("Received second signal, forcing exit", logger.WithField("signal", sig))
			m.mu.Lock()
			force := m.force
			m.mu.Unlock()
			force()
		}
	}()
}

// Deliver injects sig as if it had been received from the OS
func (m *Manager) Deliver(sig os.Signal) {
	m.mu.Lock()
	signals := m.signals
	m.mu.Unlock()

	if signals == nil {
		return
	}
	select {
	case signals <- sig:
	default:
	}
}

// Stop stops listening without running any handler that has not run yet
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
}

// IsRunning checks if the process manager is listening
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.logger.Debug("Running shutdown handlers")

	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
