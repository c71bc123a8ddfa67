// Package cli provides the command-line interface for benchrunner
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// CLI wires commands to their configuration without package-level state
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	viper    *viper.Viper
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer

	// loggingFromFlags is set when --verbosity or --log-file came from the
	// command line or the environment
	loggingFromFlags bool
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(config *Config) *CLI {
	if config == nil {
		config = NewConfig()
	}

	cli := &CLI{
		config:   config,
		viper:    viper.New(),
		logger:   logger.Discard(),
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(config *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(config)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "benchrunner",
		Short: "Run benchmark suites one job at a time",
		Long: `⏱  benchrunner - sequential benchmark execution

benchrunner expands the benchmarks of a definitions file into a queue of jobs,
one per thread variant and repetition, and runs them strictly one after the
other. Every job writes its own result file, which is validated after the
program exits.`,

		PersistentPreRunE: c.initializeConfig,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("⏱  benchrunner v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newPlanCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newHistoryCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newScheduleCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.String("config", c.config.ConfigFile, "definitions file (default: benchmarks.yaml)")
	flags.StringP("verbosity", "v", c.config.Verbosity, "log level (debug, info, warn, error)")
	flags.String("log-file", c.config.LogFile, "append logs to this file")
	flags.String("results-dir", c.config.ResultsDir, "directory for result files, relative to exec_cwd (default: from config)")
	flags.String("state-dir", c.config.StateDir, "directory for run reports and the run lock")
	flags.Bool("notify", c.config.Notify, "send desktop notifications")
	flags.StringSlice("only", c.config.Only, "run only benchmarks whose id matches one of these globs")
	flags.StringSlice("skip", c.config.Skip, "skip benchmarks whose id matches one of these globs")
	flags.Int("threads", c.config.Threads, "override the detected number of hardware threads")
}

// initializeConfig merges flags with BENCHRUNNER_* environment variables;
// explicitly set flags win
func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	v := c.viper
	v.SetEnvPrefix("BENCHRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	c.config.ConfigFile = v.GetString("config")
	c.config.Verbosity = v.GetString("verbosity")
	c.config.LogFile = v.GetString("log-file")
	c.config.ResultsDir = v.GetString("results-dir")
	c.config.StateDir = v.GetString("state-dir")
	c.config.Notify = v.GetBool("notify")
	c.config.Only = v.GetStringSlice("only")
	c.config.Skip = v.GetStringSlice("skip")
	c.config.Threads = v.GetInt("threads")

	c.loggingFromFlags = cmd.Flags().Changed("verbosity") || cmd.Flags().Changed("log-file") ||
		os.Getenv("BENCHRUNNER_VERBOSITY") != "" || os.Getenv("BENCHRUNNER_LOG_FILE") != ""
	c.logger = c.newLogger(c.config.LogFile, c.config.Verbosity)

	c.logger.Debug("Configuration resolved",
		logger.WithField("config", c.config.configPath()),
		logger.WithField("state_dir", c.config.StateDir))
	return nil
}

func (c *CLI) newLogger(logFile, level string) logger.Logger {
	if c.errorOut == os.Stderr {
		return logger.CreateLogger(logFile, level)
	}
	return logger.CreateLoggerWithOutput(logFile, level, c.errorOut)
}

// applyLogging switches to the logging section of the definitions file
// unless logging was configured explicitly
func (c *CLI) applyLogging(cfg *types.LoggingConfig) {
	if cfg == nil || c.loggingFromFlags {
		return
	}
	file, level := c.config.LogFile, c.config.Verbosity
	if cfg.File != "" {
		file = cfg.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(c.config.configPath()), file)
		}
	}
	if cfg.Level != "" {
		level = string(cfg.Level)
	}
	c.logger = c.newLogger(file, level)
}

// Helper methods for structured output

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.GreenString("✓"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.CyanString("•"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.YellowString("!"), message)
}

// ExecuteWithVersion runs the CLI on os.Args
func ExecuteWithVersion(version string) error {
	config := NewConfig()
	config.Version = version
	return NewCLI(config).Execute(os.Args[1:])
}
