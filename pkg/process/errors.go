package process

import "errors"

var (
	// ErrSpawn indicates the external program could not be started
	ErrSpawn = errors.New("starting program failed")

	// ErrStream indicates reading the program's output or reaping it failed
	ErrStream = errors.New("process stream failed")

	// ErrSignal indicates the process group could not be signalled
	ErrSignal = errors.New("signalling process group failed")
)
