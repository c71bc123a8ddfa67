// Package types provides core types and configurations for benchrunner
package types

import (
	"time"
)

// JobState represents the lifecycle state of a benchmark job
type JobState string

const (
	JobStateQueued   JobState = "QUEUED"
	JobStateSuccess  JobState = "SUCCESS"
	JobStateFailure  JobState = "FAILURE"
	JobStateCanceled JobState = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSuccess, JobStateFailure, JobStateCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a job in state s may move to next.
// Only QUEUED may move, and only into a terminal state.
func (s JobState) CanTransitionTo(next JobState) bool {
	return s == JobStateQueued && next.IsTerminal()
}

// CoreMode names the thread variant a job runs with
type CoreMode string

const (
	CoreModeSingle CoreMode = "single_core"
	CoreModeMulti  CoreMode = "multi_core"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// BenchmarkDefinition is one entry of the benchmark configuration
type BenchmarkDefinition struct {
	ID              string  `json:"id" yaml:"-"`
	Command         string  `json:"command" yaml:"command"`
	Execute         bool    `json:"execute" yaml:"execute"`
	ExpectedRuntime float64 `json:"expectedRuntime" yaml:"expected_runtime"`
	Repeats         int     `json:"repeats,omitempty" yaml:"repeats,omitempty"`
}

// EffectiveRepeats returns the configured repeat count, defaulting to 1.
func (d BenchmarkDefinition) EffectiveRepeats() int {
	if d.Repeats < 1 {
		return 1
	}
	return d.Repeats
}

// SystemInfo is the host snapshot captured once per run
type SystemInfo struct {
	Threads         int    `json:"threads"`
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platformVersion,omitempty"`
	KernelVersion   string `json:"kernelVersion,omitempty"`
	CPUModel        string `json:"cpuModel,omitempty"`
	MemoryTotal     uint64 `json:"memoryTotal,omitempty"`
	StartedAt       string `json:"startedAt"`
}

// ProjectInfo describes the benchmark suite being run
type ProjectInfo struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ValidationResult is the outcome of validating one finished job
type ValidationResult struct {
	Valid      bool      `json:"valid"`
	ResultFile string    `json:"resultFile"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256,omitempty"`
	Messages   []string  `json:"messages,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// NotificationConfig represents notification preferences
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SuccessSound string `json:"successSound,omitempty" yaml:"success_sound,omitempty"`
	FailureSound string `json:"failureSound,omitempty" yaml:"failure_sound,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file" yaml:"file"`
	Level LogLevel `json:"level" yaml:"level"`
}

// ScheduleConfig configures recurring runs. Exactly one of Cron or Every is set.
type ScheduleConfig struct {
	Cron  string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Every string `json:"every,omitempty" yaml:"every,omitempty"`
}

// BenchmarkConfig represents the benchmark definitions file
type BenchmarkConfig struct {
	Version       string                `json:"version" yaml:"version"`
	Project       ProjectInfo           `json:"project" yaml:"project"`
	WorkDir       string                `json:"execCwd,omitempty" yaml:"exec_cwd,omitempty"`
	ResultsDir    string                `json:"resultsDir,omitempty" yaml:"results_dir,omitempty"`
	Definitions   []BenchmarkDefinition `json:"benchmarks" yaml:"-"`
	Notifications *NotificationConfig   `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Logging       *LoggingConfig        `json:"logging,omitempty" yaml:"logging,omitempty"`
	Schedule      *ScheduleConfig       `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Benchmarks returns the definitions in configuration order.
func (c *BenchmarkConfig) Benchmarks() []BenchmarkDefinition {
	return c.Definitions
}

// ExecCwd returns the directory benchmark processes are started in.
func (c *BenchmarkConfig) ExecCwd() string {
	if c.WorkDir == "" {
		return "."
	}
	return c.WorkDir
}
