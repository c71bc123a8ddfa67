// Package notifier sends desktop notifications about benchmark runs
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/benchrunner/benchrunner/pkg/events"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// Config represents notification configuration
type Config struct {
	Enabled      bool
	SuccessSound string
	FailureSound string
}

// FromTypes converts the configuration file section; nil means enabled
func FromTypes(c *types.NotificationConfig) Config {
	if c == nil {
		return Config{Enabled: true}
	}
	return Config{
		Enabled:      c.Enabled == nil || *c.Enabled,
		SuccessSound: c.SuccessSound,
		FailureSound: c.FailureSound,
	}
}

// SendFunc delivers one notification
type SendFunc func(title, message, sound string) error

// RunNotifier is a run listener that reports failed jobs, cancellation and
// the end of a run
type RunNotifier struct {
	events.Nop

	config Config
	send   SendFunc
	logger logger.Logger
}

// New creates a notifier backed by beeep
func New(config Config, log logger.Logger) *RunNotifier {
	return NewWithSender(config, log, beeepSend)
}

// NewWithSender creates a notifier with a custom delivery function
func NewWithSender(config Config, log logger.Logger, send SendFunc) *RunNotifier {
	return &RunNotifier{config: config, send: send, logger: log}
}

// Result notifies about failed jobs only
func (n *RunNotifier) Result(job *types.Job, q *types.Queue) {
	if job.State() != types.JobStateFailure {
		return
	}
	message := job.BenchmarkName
	if err := job.Err(); err != nil {
		message = fmt.Sprintf("%s: %v", job.BenchmarkName, err)
	}
	n.notify("❌ Benchmark Failed", message, n.config.FailureSound)
}

// Canceled notifies that the run was stopped
func (n *RunNotifier) Canceled(job *types.Job, q *types.Queue) {
	n.notify("⏹ Run Canceled", fmt.Sprintf("Canceled during %s", job.BenchmarkName), n.config.FailureSound)
}

// Done summarizes the finished run
func (n *RunNotifier) Done(q *types.Queue) {
	counts := q.CountByState()
	failed := counts[types.JobStateFailure]
	runtime := time.Duration(q.TotalRuntime() * float64(time.Second))

	if failed > 0 {
		n.notify("⚠️ Run Finished",
			fmt.Sprintf("%d of %d benchmarks failed in %s", failed, q.Len(), formatDuration(runtime)),
			n.config.FailureSound)
		return
	}
	n.notify("✅ Run Finished",
		fmt.Sprintf("%d benchmarks in %s", q.Len(), formatDuration(runtime)),
		n.config.SuccessSound)
}

func (n *RunNotifier) notify(title, message, sound string) {
	if !n.config.Enabled {
		return
	}
	if err := n.send(title, message, sound); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
	}
}

func beeepSend(title, message, sound string) error {
	if err := beeep.Notify(title, message, ""); err != nil {
		return err
	}
	if sound != "" {
		return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
