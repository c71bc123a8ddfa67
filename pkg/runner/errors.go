package runner

import "errors"

var (
	// ErrNonZeroExit is wrapped with the exit code of a failed benchmark,
	// e.g. "non-zero exit status: 2"
	ErrNonZeroExit = errors.New("non-zero exit status")

	// ErrRunInProgress is returned by Run while another run is active
	ErrRunInProgress = errors.New("a benchmark run is already in progress")

	// ErrNoCurrentJob is returned by Cancel before any run started
	ErrNoCurrentJob = errors.New("no current job")

	// ErrMissingDependency is returned by New for an incomplete Config
	ErrMissingDependency = errors.New("runner dependency missing")
)
