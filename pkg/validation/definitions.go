// Package validation checks benchmark definitions before a run and result
// files after each job
package validation

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/benchrunner/benchrunner/pkg/types"
	shellwords "github.com/caarlos0/go-shellwords"
	"github.com/robfig/cron/v3"
)

// DefinitionValidator validates benchmark definitions
type DefinitionValidator struct {
	workDir string
}

// NewDefinitionValidator creates a validator resolving programs against workDir
func NewDefinitionValidator(workDir string) *DefinitionValidator {
	return &DefinitionValidator{
		workDir: workDir,
	}
}

// ValidationError represents a validation finding
type ValidationError struct {
	Benchmark string
	Field     string
	Message   string
	Level     ValidationLevel
}

// ValidationLevel represents finding severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
	ValidationLevelInfo    ValidationLevel = "info"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Benchmark, e.Field, e.Message)
}

// Report collects validation findings
type Report struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds a finding; error-level findings invalidate the report
func (r *Report) AddError(benchmark, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Benchmark: benchmark,
		Field:     field,
		Message:   message,
		Level:     level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

// Merge appends other's findings
func (r *Report) Merge(other *Report) {
	r.Errors = append(r.Errors, other.Errors...)
	if !other.Valid {
		r.Valid = false
	}
}

// Count returns the number of findings at level
func (r *Report) Count(level ValidationLevel) int {
	n := 0
	for _, e := range r.Errors {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Validate validates a single definition
func (v *DefinitionValidator) Validate(def types.BenchmarkDefinition) *Report {
	report := &Report{Valid: true}

	if def.ID == "" {
		report.AddError("", "id", "benchmark id is required", ValidationLevelError)
		return report
	}
	if strings.ContainsAny(def.ID, " \t/") {
		report.AddError(def.ID, "id", "benchmark id cannot contain whitespace or '/'", ValidationLevelError)
	}
	if def.Repeats < 0 {
		report.AddError(def.ID, "repeats", "repeats cannot be negative", ValidationLevelError)
	}
	if def.ExpectedRuntime < 0 {
		report.AddError(def.ID, "expected_runtime", "expected runtime cannot be negative", ValidationLevelError)
	}

	v.validateCommand(def, report)
	return report
}

func (v *DefinitionValidator) validateCommand(def types.BenchmarkDefinition, report *Report) {
	level := ValidationLevelError
	if !def.Execute {
		level = ValidationLevelWarning
	}

	tokens, err := shellwords.Parse(def.Command)
	if err != nil {
		report.AddError(def.ID, "command", fmt.Sprintf("cannot parse command: %v", err), level)
		return
	}
	if len(tokens) == 0 {
		report.AddError(def.ID, "command", "command is required", level)
		return
	}
	if !def.Execute {
		return
	}

	program := tokens[0]
	if !strings.ContainsRune(program, filepath.Separator) && !strings.ContainsRune(program, '/') {
		if _, err := exec.LookPath(program); err != nil {
			report.AddError(def.ID, "command", fmt.Sprintf("program not found in PATH: %s", program), ValidationLevelWarning)
		}
		return
	}

	path := program
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.workDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		report.AddError(def.ID, "command", fmt.Sprintf("program does not exist: %s", path), ValidationLevelWarning)
	}
}

// ValidateMultiple validates definitions and rejects duplicate ids
func (v *DefinitionValidator) ValidateMultiple(defs []types.BenchmarkDefinition) *Report {
	report := &Report{Valid: true}
	ids := make(map[string]bool)

	for _, def := range defs {
		if def.ID != "" && ids[def.ID] {
			report.AddError(def.ID, "id", "duplicate benchmark id", ValidationLevelError)
		}
		ids[def.ID] = true

		report.Merge(v.Validate(def))
	}

	return report
}

// ValidateConfiguration validates an entire configuration
func (v *DefinitionValidator) ValidateConfiguration(config *types.BenchmarkConfig) *Report {
	report := &Report{Valid: true}

	if len(config.Definitions) == 0 {
		report.AddError("config", "benchmarks", "no benchmarks defined", ValidationLevelError)
		return report
	}

	executable := 0
	for _, def := range config.Definitions {
		if def.Execute {
			executable++
		}
	}
	if executable == 0 {
		report.AddError("config", "benchmarks", "no benchmark has execute enabled", ValidationLevelWarning)
	}

	if s := config.Schedule; s != nil {
		switch {
		case s.Cron != "" && s.Every != "":
			report.AddError("config", "schedule", "set either cron or every, not both", ValidationLevelError)
		case s.Cron != "":
			if _, err := cron.ParseStandard(s.Cron); err != nil {
				report.AddError("config", "schedule.cron", fmt.Sprintf("invalid cron expression: %v", err), ValidationLevelError)
			}
		}
	}

	report.Merge(v.ValidateMultiple(config.Definitions))
	return report
}
