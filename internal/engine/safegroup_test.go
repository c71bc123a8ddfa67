package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benchrunner/benchrunner/internal/engine"
	"github.com/benchrunner/benchrunner/pkg/logger"
)

func TestSafeGroup_RecoversPanic(t *testing.T) {
	g, _ := engine.NewSafeGroup(context.Background(), logger.Discard())

	var ran atomic.Bool
	g.Go("stdout", func() error {
		panic("pipe exploded")
	})
	g.Go("stderr", func() error {
		ran.Store(true)
		return nil
	})

	err := g.Wait()
	require.ErrorIs(t, err, engine.ErrPanic)
	require.Contains(t, err.Error(), "stdout")
	require.True(t, ran.Load())
}

func TestSafeGroup_FirstErrorCancelsContext(t *testing.T) {
	g, ctx := engine.NewSafeGroup(context.Background(), logger.Discard())
	boom := errors.New("boom")

	g.Go("failing", func() error { return boom })
	g.Go("waiting", func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.ErrorIs(t, g.Wait(), boom)
}

func TestSafeGroup_NoErrors(t *testing.T) {
	g, _ := engine.NewSafeGroup(context.Background(), logger.Discard())
	g.SetLimit(1)

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		g.Go("worker", func() error {
			count.Add(1)
			return nil
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, int32(5), count.Load())
}

func TestSafeGroup_KeepsEveryError(t *testing.T) {
	g, _ := engine.NewSafeGroup(context.Background(), logger.Discard())
	first := errors.New("stdout closed")
	second := errors.New("stderr closed")

	g.Go("stdout", func() error { return first })
	g.Go("stderr", func() error { return second })

	err := g.Wait()
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
	require.Len(t, engine.Errors(err), 2)
}

func TestErrors(t *testing.T) {
	require.Nil(t, engine.Errors(nil))

	single := errors.New("single")
	require.Equal(t, []error{single}, engine.Errors(single))
}
