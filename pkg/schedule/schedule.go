// Package schedule triggers benchmark runs on a cron expression or interval
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
)

// ErrNoSchedule is returned when neither cron nor every is set
var ErrNoSchedule = errors.New("schedule needs either cron or every")

// ParseCron accepts 5-field expressions and descriptors such as @daily
func ParseCron(expr string) (cron.Schedule, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	if strings.HasPrefix(e, "@") {
		return cron.ParseStandard(e)
	}
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(e)
}

// ParseEvery parses a positive Go duration such as 90m
func ParseEvery(every string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(every))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive: %s", every)
	}
	return d, nil
}

// Definition converts the configuration section to a gocron job definition
func Definition(cfg types.ScheduleConfig) (gocron.JobDefinition, error) {
	switch {
	case cfg.Cron != "" && cfg.Every != "":
		return nil, fmt.Errorf("schedule: set either cron or every, not both")
	case cfg.Cron != "":
		if _, err := ParseCron(cfg.Cron); err != nil {
			return nil, fmt.Errorf("parsing schedule.cron: %w", err)
		}
		return gocron.CronJob(cfg.Cron, false), nil
	case cfg.Every != "":
		d, err := ParseEvery(cfg.Every)
		if err != nil {
			return nil, fmt.Errorf("parsing schedule.every: %w", err)
		}
		return gocron.DurationJob(d), nil
	default:
		return nil, ErrNoSchedule
	}
}

// Task is one scheduled run
type Task func(ctx context.Context) error

// Scheduler runs a task on a schedule. Runs never overlap: a trigger that
// fires while the previous run is active is rescheduled.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	logger    logger.Logger
	cancel    context.CancelFunc
}

// Options tune a Scheduler
type Options struct {
	// Immediately runs the task once right after Start.
	Immediately bool
	// SchedulerOptions are passed to gocron, e.g. a fake clock in tests.
	SchedulerOptions []gocron.SchedulerOption
}

// New creates a scheduler for task
func New(cfg types.ScheduleConfig, task Task, log logger.Logger, opts Options) (*Scheduler, error) {
	def, err := Definition(cfg)
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler(opts.SchedulerOptions...)
	if err != nil {
		return nil, fmt.Errorf("initializing scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{scheduler: s, logger: log, cancel: cancel}

	jobOpts := []gocron.JobOption{
		gocron.WithName("benchmark-run"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if opts.Immediately {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.NewJob(def, gocron.NewTask(func() {
		start := time.Now()
		log.Info("Scheduled run starting")
		if err := task(ctx); err != nil {
			log.Error("Scheduled run failed", logger.WithError(err))
			return
		}
		log.Info("Scheduled run finished",
			logger.WithField("duration", time.Since(start).Round(time.Millisecond)))
	}), jobOpts...)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing scheduled job: %w", err)
	}
	sched.job = job
	return sched, nil
}

// Start begins scheduling
func (s *Scheduler) Start() {
	s.scheduler.Start()
	if next, err := s.job.NextRun(); err == nil {
		s.logger.Info("Scheduler started", logger.WithField("next_run", next.Format(time.RFC3339)))
	}
}

// NextRun returns the next trigger time
func (s *Scheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

// Shutdown cancels the running task's context and waits for it to return
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutting down scheduler: %w", err)
	}
	return nil
}
