package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// LogListener reports run progress through a logger, one target per job
type LogListener struct {
	logger logger.Logger
}

// NewLogListener creates a progress logger
func NewLogListener(log logger.Logger) *LogListener {
	return &LogListener{logger: log}
}

func progress(job *types.Job, q *types.Queue) string {
	return fmt.Sprintf("%d/%d", job.QueueID+1, q.Len())
}

func (l *LogListener) Initialize(q *types.Queue) {
	l.logger.Info("Benchmark run initialized",
		logger.WithField("jobs", q.Len()),
		logger.WithField("threads", q.System.Threads),
		logger.WithField("expected", formatSeconds(q.TotalExpectedRuntime())),
		logger.WithField("started_at", q.System.StartedAt))
}

func (l *LogListener) Setup(job *types.Job, q *types.Queue) {
	l.logger.WithTarget(job.BenchmarkName).Debug("Preparing job",
		logger.WithField("progress", progress(job, q)),
		logger.WithField("command", strings.Join(append([]string{job.ShellCommand}, job.ShellArgs...), " ")))
}

func (l *LogListener) Spawned(proc process.Handle, job *types.Job, q *types.Queue) {
	l.logger.WithTarget(job.BenchmarkName).Info("Started",
		logger.WithField("progress", progress(job, q)),
		logger.WithField("pid", proc.PID()))
}

func (l *LogListener) Result(job *types.Job, q *types.Queue) {
	log := l.logger.WithTarget(job.BenchmarkName)
	fields := []logger.Field{
		logger.WithField("progress", progress(job, q)),
		logger.WithField("runtime", formatSeconds(job.Runtime())),
	}
	if v := job.Validation(); v != nil {
		fields = append(fields, logger.WithField("valid", v.Valid))
	}

	switch job.State() {
	case types.JobStateSuccess:
		log.Success("Finished", fields...)
	case types.JobStateCanceled:
		log.Warn("Canceled", fields...)
	default:
		if err := job.Err(); err != nil {
			fields = append(fields, logger.WithError(err))
		}
		log.Error("Failed", fields...)
	}
}

func (l *LogListener) Error(err error, job *types.Job, _ *types.Queue) {
	l.logger.WithTarget(job.BenchmarkName).Error("Job error", logger.WithError(err))
}

func (l *LogListener) Canceled(job *types.Job, _ *types.Queue) {
	l.logger.WithTarget(job.BenchmarkName).Warn("Run canceled")
}

func (l *LogListener) Done(q *types.Queue) {
	counts := q.CountByState()
	l.logger.Info("Benchmark run done",
		logger.WithField("success", counts[types.JobStateSuccess]),
		logger.WithField("failure", counts[types.JobStateFailure]),
		logger.WithField("canceled", counts[types.JobStateCanceled]),
		logger.WithField("runtime", formatSeconds(q.TotalRuntime())))
}

func formatSeconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Round(time.Millisecond).String()
}
