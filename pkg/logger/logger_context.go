package logger

import (
	"context"

	pcontext "github.com/benchrunner/benchrunner/pkg/context"
)

// WithContext returns a logger that tags every entry with the run id, job
// and operation found in ctx. Loggers without any of these are returned
// unchanged.
func WithContext(ctx context.Context, log Logger) Logger {
	if ctx == nil {
		return log
	}
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return log
	}
	return &contextLogger{next: log, fields: fields}
}

func contextFields(ctx context.Context) []Field {
	var fields []Field
	if runID := pcontext.GetRunID(ctx); runID != pcontext.UnknownRunID {
		fields = append(fields, WithField("run_id", runID))
	}
	if job, ok := pcontext.GetJob(ctx); ok {
		fields = append(fields, WithField("queue_id", job.QueueID))
	}
	if op := pcontext.GetOperation(ctx); op != pcontext.UnknownOperation {
		fields = append(fields, WithField("operation", op))
	}
	return fields
}

type contextLogger struct {
	next   Logger
	fields []Field
}

func (l *contextLogger) with(fields []Field) []Field {
	out := make([]Field, 0, len(l.fields)+len(fields))
	out = append(out, l.fields...)
	return append(out, fields...)
}

func (l *contextLogger) Info(message string, fields ...Field) {
	l.next.Info(message, l.with(fields)...)
}

func (l *contextLogger) Error(message string, fields ...Field) {
	l.next.Error(message, l.with(fields)...)
}

func (l *contextLogger) Warn(message string, fields ...Field) {
	l.next.Warn(message, l.with(fields)...)
}

func (l *contextLogger) Debug(message string, fields ...Field) {
	l.next.Debug(message, l.with(fields)...)
}

func (l *contextLogger) Success(message string, fields ...Field) {
	l.next.Success(message, l.with(fields)...)
}

func (l *contextLogger) WithTarget(target string) Logger {
	return &contextLogger{next: l.next.WithTarget(target), fields: l.fields}
}
