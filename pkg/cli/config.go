package cli

import (
	"path/filepath"

	"github.com/benchrunner/benchrunner/pkg/config"
)

// Config holds the CLI settings after flags and BENCHRUNNER_* environment
// variables have been merged
type Config struct {
	ConfigFile string
	Verbosity  string
	LogFile    string
	ResultsDir string
	StateDir   string
	Notify     bool
	Only       []string
	Skip       []string
	Threads    int
	Version    string
}

// NewConfig creates a CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		Verbosity: "info",
		StateDir:  ".benchrunner",
		Notify:    true,
		Version:   "dev",
	}
}

func (c *Config) configPath() string {
	if c.ConfigFile != "" {
		return c.ConfigFile
	}
	return config.DefaultConfigFile
}

// stateDir resolves a relative state directory against the directory of the
// definitions file
func (c *Config) stateDir() string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(filepath.Dir(c.configPath()), c.StateDir)
}
