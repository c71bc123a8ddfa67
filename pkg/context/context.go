// Package context carries run-scoped values (run id, current job) through
// context.Context
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Unexported struct pointers prevent key collisions.
var (
	runIDKey     = &struct{}{}
	jobKey       = &struct{}{}
	operationKey = &struct{}{}
	startTimeKey = &struct{}{}
)

// Placeholders returned when a value is missing
const (
	UnknownRunID     = "unknown-run"
	UnknownOperation = "unknown-operation"
)

// JobRef identifies the job a context belongs to
type JobRef struct {
	QueueID int
	Name    string
}

// WithRunID adds a run ID to the context, generating one if empty
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return UnknownRunID
}

// WithJob attaches the job being executed
func WithJob(parent context.Context, queueID int, name string) context.Context {
	return context.WithValue(parent, jobKey, JobRef{QueueID: queueID, Name: name})
}

// GetJob retrieves the job attached with WithJob
func GetJob(ctx context.Context) (JobRef, bool) {
	ref, ok := ctx.Value(jobKey).(JobRef)
	return ref, ok
}

// WithOperation adds an operation name to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return UnknownOperation
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time, zero if none was set
func GetStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetDuration returns the time since the start time, 0 if none was set
func GetDuration(ctx context.Context) time.Duration {
	start, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext adds a run id (if missing) and the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetRunID(ctx) == UnknownRunID {
		ctx = WithRunID(ctx, GenerateRunID())
	}
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns common tracing fields for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{
		"run_id":      GetRunID(ctx),
		"operation":   GetOperation(ctx),
		"duration_ms": GetDuration(ctx).Milliseconds(),
	}
	if job, ok := GetJob(ctx); ok {
		fields["job"] = job.Name
		fields["queue_id"] = job.QueueID
	}
	return fields
}
