package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
)

//go:generate mockgen -destination=../mocks/validator.go -package=mocks github.com/benchrunner/benchrunner/pkg/validation Validator

// Validator checks a finished job. The returned channel delivers exactly one
// result and is then closed.
type Validator interface {
	Validate(ctx context.Context, job *types.Job) <-chan types.ValidationResult
}

// Func adapts a synchronous check to a Validator; the check runs in its own
// goroutine
type Func func(ctx context.Context, job *types.Job) types.ValidationResult

// Validate implements Validator
func (f Func) Validate(ctx context.Context, job *types.Job) <-chan types.ValidationResult {
	ch := make(chan types.ValidationResult, 1)
	go func() {
		defer close(ch)
		ch <- f(ctx, job)
	}()
	return ch
}

// ResultFileValidator accepts a job when it succeeded and left a non-empty
// result file behind
type ResultFileValidator struct {
	baseDir string
	fs      *utils.FileSystemUtils
	logger  logger.Logger
	now     func() time.Time
}

// NewResultFileValidator resolves relative result files against baseDir
func NewResultFileValidator(baseDir string, log logger.Logger) *ResultFileValidator {
	return &ResultFileValidator{
		baseDir: baseDir,
		fs:      utils.NewFileSystemUtils(),
		logger:  log,
		now:     time.Now,
	}
}

// Validate implements Validator
func (v *ResultFileValidator) Validate(ctx context.Context, job *types.Job) <-chan types.ValidationResult {
	return Func(v.check).Validate(ctx, job)
}

func (v *ResultFileValidator) check(ctx context.Context, job *types.Job) types.ValidationResult {
	log := logger.WithContext(ctx, v.logger).WithTarget(job.BenchmarkName)
	res := types.ValidationResult{
		ResultFile: job.ResultFile,
		CheckedAt:  v.now(),
	}

	if err := ctx.Err(); err != nil {
		res.Messages = append(res.Messages, fmt.Sprintf("validation aborted: %v", err))
		return res
	}

	state := job.State()
	if state != types.JobStateSuccess {
		res.Messages = append(res.Messages, fmt.Sprintf("job finished with state %s", state))
	}

	path := v.fs.Resolve(v.baseDir, job.ResultFile)
	size, err := v.fs.FileSize(path)
	if err != nil {
		res.Messages = append(res.Messages, fmt.Sprintf("result file missing: %s", path))
		log.Debug("Result file missing", logger.WithField("path", path))
		return res
	}
	res.Size = size

	if size == 0 {
		res.Messages = append(res.Messages, "result file is empty")
	} else if hash, err := v.fs.GetFileHash(path); err != nil {
		res.Messages = append(res.Messages, fmt.Sprintf("cannot hash result file: %v", err))
	} else {
		res.SHA256 = hash
	}

	res.Valid = state == types.JobStateSuccess && size > 0 && res.SHA256 != ""
	log.Debug("Result validated",
		logger.WithField("valid", res.Valid),
		logger.WithField("size", utils.FormatBytes(size)))
	return res
}
