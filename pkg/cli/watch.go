package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benchrunner/benchrunner/pkg/config"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/schedule"
	"github.com/benchrunner/benchrunner/pkg/types"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the benchmarks and re-run them whenever the definitions change",
		Long: `Run the queue once, then watch the definitions file. A change cancels the
running queue and starts a fresh run with the new definitions. Invalid
definitions are reported and ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context())
		},
	}
}

func (c *CLI) runWatch(parent context.Context) error {
	s, err := c.newSession()
	if err != nil {
		return err
	}
	if err := s.store.Lock(); err != nil {
		return err
	}
	defer s.store.Unlock()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pm := process.NewManager(c.logger)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)
	defer pm.Stop()

	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	rm := config.NewReloadManager(c.config.configPath(), c.logger)
	rm.AddCallback(func(cfg *types.BenchmarkConfig, err error) {
		if err != nil {
			c.logger.Warn("Ignoring configuration change", logger.WithError(err))
			return
		}
		s.source.Set(cfg)
		if s.runner.Running() {
			if err := s.runner.Cancel(); err != nil {
				c.logger.Debug("Nothing to cancel", logger.WithError(err))
			}
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err := rm.StartWatching(); err != nil {
		return err
	}
	defer rm.StopWatching()

	c.printInfo(fmt.Sprintf("Watching %s for changes", c.config.configPath()))

	for {
		select {
		case <-ctx.Done():
			c.printInfo("Stopped watching")
			return nil
		case <-trigger:
			if ctx.Err() != nil {
				continue
			}
			err := s.run(ctx)
			c.printSummary(s)
			if err != nil && !errors.Is(err, ErrRunFailed) && !errors.Is(err, ErrRunCanceled) {
				return err
			}
		}
	}
}

func (c *CLI) newScheduleCmd() *cobra.Command {
	var cronExpr, every string
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the benchmarks on a cron expression or interval",
		Long: `Keep running and start a benchmark run on every trigger of the schedule.
The schedule comes from --cron or --every, or from the schedule section of
the definitions file. Runs never overlap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession()
			if err != nil {
				return err
			}

			sc := types.ScheduleConfig{Cron: cronExpr, Every: every}
			if sc.Cron == "" && sc.Every == "" {
				if cfgSchedule := s.source.Config().Schedule; cfgSchedule != nil {
					sc = *cfgSchedule
				}
			}
			return c.runSchedule(cmd.Context(), s, sc, now)
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression, e.g. \"0 3 * * *\"")
	cmd.Flags().StringVar(&every, "every", "", "interval between runs, e.g. 6h")
	cmd.Flags().BoolVar(&now, "now", false, "start the first run immediately")
	return cmd
}

func (c *CLI) runSchedule(parent context.Context, s *session, sc types.ScheduleConfig, now bool) error {
	if err := s.store.Lock(); err != nil {
		return err
	}
	defer s.store.Unlock()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	task := func(taskCtx context.Context) error {
		runCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			select {
			case <-taskCtx.Done():
				stop()
			case <-runCtx.Done():
			}
		}()

		err := s.run(runCtx)
		c.printSummary(s)
		if errors.Is(err, ErrRunFailed) {
			return nil
		}
		return err
	}

	sched, err := schedule.New(sc, task, c.logger, schedule.Options{Immediately: now})
	if err != nil {
		return err
	}

	pm := process.NewManager(c.logger)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)
	defer pm.Stop()

	sched.Start()
	if next, err := sched.NextRun(); err == nil {
		c.printInfo(fmt.Sprintf("Next run at %s", next.Format("2006-01-02 15:04:05")))
	}

	<-ctx.Done()
	c.printInfo("Stopping scheduler")
	return sched.Shutdown()
}
