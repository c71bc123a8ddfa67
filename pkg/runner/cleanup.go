package runner

import (
	"fmt"
	"os"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/hashicorp/go-multierror"
)

// ClearResults removes the result files of the current queue, or of a
// freshly planned one before the first run. Missing and read-only files are
// skipped; removal failures are logged and returned together.
func (r *Runner) ClearResults() error {
	q := r.Queue()
	if q == nil {
		planned, err := r.Plan()
		if err != nil {
			return fmt.Errorf("failed to build queue: %w", err)
		}
		q = planned
	}
	return r.removeFiles(r.logger, q.ResultFiles())
}

func (r *Runner) removeFiles(log logger.Logger, files []string) error {
	var result *multierror.Error
	seen := make(map[string]bool, len(files))

	for _, file := range files {
		path := r.fs.Resolve(r.env.ExecCwd(), file)
		if seen[path] {
			continue
		}
		seen[path] = true

		if !r.fs.Exists(path) || !r.fs.IsWritable(path) {
			continue
		}

		if err := os.Remove(path); err != nil {
			log.Warn("Failed to remove result file",
				logger.WithField("path", path),
				logger.WithError(err))
			result = multierror.Append(result, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		log.Debug("Removed result file", logger.WithField("path", path))
	}

	return result.ErrorOrNil()
}
