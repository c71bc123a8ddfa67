// Package config handles loading of the benchmark definitions file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/benchrunner/benchrunner/pkg/queue"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
	"github.com/benchrunner/benchrunner/pkg/validation"
)

const (
	// DefaultConfigFile is looked up in the working directory
	DefaultConfigFile = "benchmarks.yaml"
	// CurrentVersion is written by Init and assumed when version is empty
	CurrentVersion = "1"
)

// ErrInvalidConfig wraps error-level validation findings
var ErrInvalidConfig = errors.New("invalid configuration")

// Manager handles configuration operations
type Manager struct {
	lastReport *validation.Report
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// document is the on-disk layout. Benchmarks stay a raw node so the mapping
// order of the file becomes the queue order.
type document struct {
	types.BenchmarkConfig `yaml:",inline"`
	Benchmarks            yaml.Node `yaml:"benchmarks"`
}

type definition struct {
	Command         string  `yaml:"command"`
	Execute         *bool   `yaml:"execute"`
	ExpectedRuntime float64 `yaml:"expected_runtime"`
	Repeats         int     `yaml:"repeats"`
}

// LoadConfig reads, defaults and validates the file at path. YAML and JSON
// files are accepted. Findings below error level are kept in LastReport.
func (m *Manager) LoadConfig(path string) (*types.BenchmarkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyDefaults(cfg, filepath.Dir(path))

	report := m.Validate(cfg)
	if !report.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, summarize(report))
	}
	return cfg, nil
}

// Parse decodes a definitions document without applying defaults
func Parse(data []byte) (*types.BenchmarkConfig, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	cfg := doc.BenchmarkConfig
	defs, err := decodeDefinitions(&doc.Benchmarks)
	if err != nil {
		return nil, err
	}
	cfg.Definitions = defs
	return &cfg, nil
}

func decodeDefinitions(node *yaml.Node) ([]types.BenchmarkDefinition, error) {
	switch {
	case node.Kind == 0, node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		return nil, nil
	case node.Kind == yaml.MappingNode:
	default:
		return nil, fmt.Errorf("line %d: benchmarks must be a mapping of id to definition", node.Line)
	}

	defs := make([]types.BenchmarkDefinition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var raw definition
		if err := value.Decode(&raw); err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", key.Value, err)
		}

		execute := true
		if raw.Execute != nil {
			execute = *raw.Execute
		}
		defs = append(defs, types.BenchmarkDefinition{
			ID:              key.Value,
			Command:         raw.Command,
			Execute:         execute,
			ExpectedRuntime: raw.ExpectedRuntime,
			Repeats:         raw.Repeats,
		})
	}
	return defs, nil
}

func applyDefaults(cfg *types.BenchmarkConfig, baseDir string) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	switch {
	case cfg.WorkDir == "":
		cfg.WorkDir = baseDir
	case !filepath.IsAbs(cfg.WorkDir):
		cfg.WorkDir = filepath.Join(baseDir, cfg.WorkDir)
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = queue.DefaultResultsDir
	}
	if cfg.Notifications == nil {
		enabled := true
		cfg.Notifications = &types.NotificationConfig{Enabled: &enabled}
	}
}

// Validate checks cfg and remembers the report
func (m *Manager) Validate(cfg *types.BenchmarkConfig) *validation.Report {
	report := validation.NewDefinitionValidator(cfg.ExecCwd()).ValidateConfiguration(cfg)
	if cfg.Version != CurrentVersion {
		report.AddError("config", "version", fmt.Sprintf("unsupported config version: %s", cfg.Version), validation.ValidationLevelError)
	}
	m.lastReport = report
	return report
}

// LastReport returns the findings of the last validation
func (m *Manager) LastReport() *validation.Report {
	return m.lastReport
}

func summarize(report *validation.Report) string {
	var msgs []string
	for _, e := range report.Errors {
		if e.Level == validation.ValidationLevelError {
			msgs = append(msgs, e.Error())
		}
	}
	return strings.Join(msgs, "; ")
}

// Init writes an example definitions file to path, refusing to overwrite
func (m *Manager) Init(path string) error {
	if utils.FileExists(path) {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return utils.NewFileSystemUtils().WriteFileAtomic(path, []byte(exampleConfig))
}

const exampleConfig = `version: "1"

project:
  name: my-project
  version: 0.1.0

# exec_cwd: .
# results_dir: ./results

benchmarks:
  example:
    command: ./bench/example --iterations 1000
    execute: true
    expected_runtime: 10
    repeats: 1

# schedule:
#   cron: "0 3 * * *"
`
