// Package engine holds concurrency helpers shared by the runner
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/benchrunner/benchrunner/pkg/logger"
)

// ErrPanic wraps a panic recovered from a group goroutine
var ErrPanic = errors.New("goroutine panic")

// SafeGroup runs named goroutines, such as the stdout and stderr pumps of a
// job. Panics become errors wrapping ErrPanic. Unlike a bare errgroup every
// error is kept, not only the first one.
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger

	mu   sync.Mutex
	errs *multierror.Error
}

// NewSafeGroup creates a group; the returned context is canceled when the
// first goroutine fails
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{group: g, logger: log}, ctx
}

// Go starts fn under name
func (sg *SafeGroup) Go(name string, fn func() error) {
	sg.group.Go(func() error {
		err := sg.call(name, fn)
		if err != nil {
			sg.mu.Lock()
			sg.errs = multierror.Append(sg.errs, err)
			sg.mu.Unlock()
		}
		return err
	})
}

func (sg *SafeGroup) call(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			sg.logger.Error("Goroutine panic recovered",
				logger.WithField("goroutine", name),
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("%w in %s: %v", ErrPanic, name, r)
		}
	}()
	return fn()
}

// SetLimit caps the number of goroutines running at once
func (sg *SafeGroup) SetLimit(n int) {
	sg.group.SetLimit(n)
}

// Wait blocks until every goroutine returned. The result is nil or a
// *multierror.Error holding each failure in completion order.
func (sg *SafeGroup) Wait() error {
	_ = sg.group.Wait()

	sg.mu.Lock()
	defer sg.mu.Unlock()
	return sg.errs.ErrorOrNil()
}

// Errors splits an error returned by Wait back into its parts
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	return []error{err}
}
