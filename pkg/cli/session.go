package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benchrunner/benchrunner/internal/state"
	"github.com/benchrunner/benchrunner/pkg/config"
	pcontext "github.com/benchrunner/benchrunner/pkg/context"
	"github.com/benchrunner/benchrunner/pkg/events"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/notifier"
	"github.com/benchrunner/benchrunner/pkg/queue"
	"github.com/benchrunner/benchrunner/pkg/runner"
	"github.com/benchrunner/benchrunner/pkg/sysinfo"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
	"github.com/benchrunner/benchrunner/pkg/validation"
)

var (
	// ErrRunFailed is returned when at least one job ended in FAILURE
	ErrRunFailed = errors.New("benchmark run failed")
	// ErrRunCanceled is returned when a run was canceled
	ErrRunCanceled = errors.New("benchmark run canceled")
)

// definitionSource serves the loaded definitions, filtered by --only and
// --skip. The configuration can be swapped between runs.
type definitionSource struct {
	mu   sync.RWMutex
	cfg  *types.BenchmarkConfig
	only *utils.PatternMatcher
	skip *utils.PatternMatcher
}

func newDefinitionSource(cfg *types.BenchmarkConfig, only, skip []string) (*definitionSource, error) {
	onlyMatcher, err := utils.NewPatternMatcher(only)
	if err != nil {
		return nil, fmt.Errorf("--only: %w", err)
	}
	skipMatcher, err := utils.NewPatternMatcher(skip)
	if err != nil {
		return nil, fmt.Errorf("--skip: %w", err)
	}
	return &definitionSource{cfg: cfg, only: onlyMatcher, skip: skipMatcher}, nil
}

func (s *definitionSource) Benchmarks() []types.BenchmarkDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var defs []types.BenchmarkDefinition
	for _, def := range s.cfg.Benchmarks() {
		if !s.only.Empty() && !s.only.Match(def.ID) {
			continue
		}
		if s.skip.Match(def.ID) {
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

func (s *definitionSource) ExecCwd() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ExecCwd()
}

func (s *definitionSource) Config() *types.BenchmarkConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *definitionSource) Set(cfg *types.BenchmarkConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// session is everything one command needs to run benchmarks
type session struct {
	source   *definitionSource
	runner   *runner.Runner
	store    *state.Store
	reporter *state.Reporter
	logger   logger.Logger
	fs       *utils.FileSystemUtils

	resultsDir string

	mu    sync.Mutex
	runID string
}

func (c *CLI) loadDefinitions() (*types.BenchmarkConfig, error) {
	m := config.NewManager()
	cfg, err := m.LoadConfig(c.config.configPath())
	if err != nil {
		return nil, err
	}
	c.applyLogging(cfg.Logging)
	if report := m.LastReport(); report != nil {
		for _, finding := range report.Errors {
			c.logger.Warn(finding.Message,
				logger.WithField("benchmark", finding.Benchmark),
				logger.WithField("field", finding.Field))
		}
	}
	return cfg, nil
}

func (c *CLI) newSession() (*session, error) {
	cfg, err := c.loadDefinitions()
	if err != nil {
		return nil, err
	}

	source, err := newDefinitionSource(cfg, c.config.Only, c.config.Skip)
	if err != nil {
		return nil, err
	}

	var system sysinfo.Provider = sysinfo.NewHostProvider(cfg.Project, c.logger)
	if c.config.Threads > 0 {
		system = sysinfo.WithThreads{Provider: system, Threads: c.config.Threads}
	}

	resultsDir := cfg.ResultsDir
	if c.config.ResultsDir != "" {
		resultsDir = c.config.ResultsDir
	}

	r, err := runner.New(runner.Config{
		Benchmarks: source,
		System:     system,
		Validator:  validation.NewResultFileValidator(cfg.ExecCwd(), c.logger),
		Logger:     c.logger,
		Queue:      queue.Options{ResultsDir: resultsDir},
	})
	if err != nil {
		return nil, err
	}

	s := &session{
		source: source,
		runner: r,
		store:  state.NewStore(c.config.stateDir(), c.logger),
		logger: c.logger,
		fs:     utils.NewFileSystemUtils(),

		resultsDir: resultsDir,
	}
	s.reporter = state.NewReporter(s.store, s.currentRunID)

	r.Subscribe(events.NewLogListener(c.logger))
	r.Subscribe(s.reporter)
	if c.config.Notify {
		r.Subscribe(notifier.New(notifier.FromTypes(cfg.Notifications), c.logger))
	}
	return s, nil
}

func (s *session) currentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// run executes one queue under a fresh run id and turns the outcome into
// an error
func (s *session) run(ctx context.Context) error {
	runID := pcontext.GenerateRunID()
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()

	// benchmarks write their result files but expect the directory to exist
	dir := s.fs.Resolve(s.source.ExecCwd(), s.resultsDir)
	if err := utils.EnsureDirectory(dir); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	if err := s.runner.Run(pcontext.WithRunID(ctx, runID)); err != nil {
		return err
	}
	return s.outcome()
}

func (s *session) outcome() error {
	if s.runner.Canceled() {
		return ErrRunCanceled
	}
	q := s.runner.Queue()
	if q == nil {
		return nil
	}
	if failed := q.CountByState()[types.JobStateFailure]; failed > 0 {
		return fmt.Errorf("%w: %d of %d jobs failed", ErrRunFailed, failed, q.Len())
	}
	return nil
}
