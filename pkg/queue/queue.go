// Package queue builds the ordered job queue for a benchmark run
package queue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benchrunner/benchrunner/pkg/types"
	shellwords "github.com/caarlos0/go-shellwords"
)

// DefaultResultsDir is where benchmark processes write their result files.
const DefaultResultsDir = "./results"

// ErrEmptyCommand is returned for an executable benchmark without a command.
var ErrEmptyCommand = errors.New("benchmark command is empty")

// BenchmarkProvider supplies benchmark definitions in configuration order
type BenchmarkProvider interface {
	Benchmarks() []types.BenchmarkDefinition
}

// ParseFunc splits a command string into program and arguments
type ParseFunc func(command string) ([]string, error)

// Options tunes queue construction
type Options struct {
	ResultsDir string
	Parser     ParseFunc
}

func (o Options) withDefaults() Options {
	if o.ResultsDir == "" {
		o.ResultsDir = DefaultResultsDir
	}
	if o.Parser == nil {
		o.Parser = shellwords.Parse
	}
	return o
}

// ThreadVariants returns the thread counts every benchmark is run with.
func ThreadVariants(maxThreads int) []int {
	if maxThreads <= 1 {
		return []int{1}
	}
	return []int{1, maxThreads}
}

// Build expands every executable definition into jobs. Jobs are ordered by
// definition, then thread variant, then repeat, and numbered from zero.
func Build(provider BenchmarkProvider, system types.SystemInfo, project types.ProjectInfo, startedAt time.Time, opts Options) (*types.Queue, error) {
	opts = opts.withDefaults()
	q := types.NewQueue(system, project, startedAt)

	queueID := 0
	for _, def := range provider.Benchmarks() {
		if !def.Execute {
			continue
		}

		tokens, err := opts.Parser(def.Command)
		if err != nil {
			return nil, fmt.Errorf("failed to parse command for benchmark %s: %w", def.ID, err)
		}
		if len(tokens) == 0 {
			return nil, fmt.Errorf("benchmark %s: %w", def.ID, ErrEmptyCommand)
		}

		repeats := def.EffectiveRepeats()
		for _, threads := range ThreadVariants(system.Threads) {
			for i := 0; i < repeats; i++ {
				q.Append(newJob(def, tokens, threads, i, repeats, queueID, opts.ResultsDir))
				queueID++
			}
		}
	}

	return q, nil
}

func newJob(def types.BenchmarkDefinition, tokens []string, threads, index, repeats, queueID int, resultsDir string) *types.Job {
	resultFile := ResultFile(resultsDir, def.ID, threads, index, repeats)

	args := make([]string, 0, len(tokens)+2)
	args = append(args, tokens[1:]...)
	args = append(args, resultFile, "-tc", strconv.Itoa(threads))

	job := types.NewJob()
	job.QueueID = queueID
	job.BenchmarkID = def.ID
	job.BenchmarkName = JobName(def.ID, threads, index, repeats)
	job.ShellCommand = tokens[0]
	job.ShellArgs = args
	job.Threads = threads
	job.Repeat = index + 1
	job.Repeats = repeats
	job.ExpectedRuntime = def.ExpectedRuntime
	job.ResultFile = resultFile
	return job
}

// ResultFile returns <dir>/<id>.<single_core|multi_core>[.<index>].result.txt;
// the repeat index only appears when the benchmark repeats.
func ResultFile(dir, benchmarkID string, threads, index, repeats int) string {
	mode := types.CoreModeSingle
	if threads > 1 {
		mode = types.CoreModeMulti
	}

	name := benchmarkID + "." + string(mode)
	if repeats > 1 {
		name += "." + strconv.Itoa(index)
	}
	return strings.TrimRight(dir, "/") + "/" + name + ".result.txt"
}

// JobName returns the display name <id>[.<index>] -tc <threads>.
func JobName(benchmarkID string, threads, index, repeats int) string {
	name := benchmarkID
	if repeats > 1 {
		name += "." + strconv.Itoa(index)
	}
	return fmt.Sprintf("%s -tc %d", name, threads)
}
