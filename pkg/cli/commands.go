package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/benchrunner/benchrunner/internal/state"
	"github.com/benchrunner/benchrunner/pkg/config"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/process"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/validation"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all enabled benchmarks once",
		Long: `Build the job queue from the definitions file and run it. Result files
left over from earlier runs are removed first. Ctrl-C cancels the running
job and stops the queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession()
			if err != nil {
				return err
			}
			if err := s.store.Lock(); err != nil {
				return err
			}
			defer s.store.Unlock()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pm := process.NewManager(c.logger)
			pm.RegisterShutdownHandler(cancel)
			pm.Start(ctx)
			defer pm.Stop()

			err = s.run(ctx)
			c.printSummary(s)
			return err
		},
	}
}

func (c *CLI) newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the queue a run would execute",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession()
			if err != nil {
				return err
			}
			q, err := s.runner.Plan()
			if err != nil {
				return err
			}
			c.printPlan(q)
			return nil
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the result files of the planned queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession()
			if err != nil {
				return err
			}
			if err := s.runner.ClearResults(); err != nil {
				return err
			}
			c.printSuccess("Result files removed")
			return nil
		},
	}
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the definitions file",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := config.NewManager()
			_, err := m.LoadConfig(c.config.configPath())

			if report := m.LastReport(); report != nil {
				for _, finding := range report.Errors {
					switch finding.Level {
					case validation.ValidationLevelError:
						fmt.Fprintf(c.output, "%s %s\n", color.RedString("✗"), finding.Error())
					default:
						c.printWarning(finding.Error())
					}
				}
			}
			if err != nil {
				return err
			}

			c.printSuccess(fmt.Sprintf("%s is valid", c.config.configPath()))
			return nil
		},
	}
}

func (c *CLI) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an example definitions file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.config.configPath()
			if err := config.NewManager().Init(path); err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Created %s", path))
			return nil
		},
	}
}

func (c *CLI) newHistoryCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewStore(c.config.stateDir(), c.logger)

			if len(args) == 1 {
				report, err := store.LoadRun(args[0])
				if err != nil {
					return fmt.Errorf("failed to load run %s: %w", args[0], err)
				}
				if asJSON {
					enc := json.NewEncoder(c.output)
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}
				c.printReport(report)
				return nil
			}

			reports, err := store.ListRuns()
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				c.printInfo("No runs recorded yet")
				return nil
			}
			if limit > 0 && len(reports) > limit {
				reports = reports[:limit]
			}
			c.printHistory(reports)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := state.NewStore(c.config.stateDir(), c.logger).Prune(keep)
			if err != nil {
				return err
			}
			c.printSuccess(fmt.Sprintf("Removed %d run reports", removed))
			return nil
		},
	}
	prune.Flags().IntVar(&keep, "keep", 20, "number of runs to keep")
	cmd.AddCommand(prune)
	return cmd
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "⏱  benchrunner v%s\n", c.config.Version)
		},
	}
}

func stateColor(s types.JobState) string {
	switch s {
	case types.JobStateSuccess:
		return color.GreenString(string(s))
	case types.JobStateFailure:
		return color.RedString(string(s))
	case types.JobStateCanceled:
		return color.YellowString(string(s))
	default:
		return color.WhiteString(string(s))
	}
}

func formatSeconds(s float64) string {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond).String()
}

func (c *CLI) printPlan(q *types.Queue) {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tJOB\tCOMMAND\tEXPECTED")
	fmt.Fprintln(w, "-\t---\t-------\t--------")
	for _, job := range q.Jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			job.QueueID,
			job.BenchmarkName,
			strings.Join(append([]string{job.ShellCommand}, job.ShellArgs...), " "),
			formatSeconds(job.ExpectedRuntime))
	}
	w.Flush()

	fmt.Fprintf(c.output, "\n%d jobs on %d threads, expected runtime %s\n",
		q.Len(), q.System.Threads, formatSeconds(q.TotalExpectedRuntime()))
}

func (c *CLI) printJobs(jobs []types.JobSnapshot) {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tJOB\tSTATE\tRUNTIME\tVALID\tERROR")
	fmt.Fprintln(w, "-\t---\t-----\t-------\t-----\t-----")
	for _, job := range jobs {
		valid := "-"
		if job.Validation != nil {
			valid = fmt.Sprintf("%t", job.Validation.Valid)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			job.QueueID, job.BenchmarkName, stateColor(job.State),
			formatSeconds(job.Runtime), valid, job.Error)
	}
	w.Flush()
}

func (c *CLI) printSummary(s *session) {
	q := s.runner.Queue()
	if q == nil {
		return
	}
	fmt.Fprintln(c.output)
	c.printJobs(q.Snapshot().Jobs)

	if report, err := s.reporter.Last(); err == nil && report != nil {
		c.printInfo(fmt.Sprintf("Run %s saved (%s)", report.RunID, report.Status))
	} else if err != nil {
		c.logger.Warn("Run report not saved", logger.WithError(err))
	}
}

func (c *CLI) printReport(report *state.RunReport) {
	fmt.Fprintf(c.output, "Run:     %s\n", report.RunID)
	fmt.Fprintf(c.output, "Status:  %s\n", report.Status)
	fmt.Fprintf(c.output, "Started: %s\n", report.Queue.System.StartedAt)
	fmt.Fprintf(c.output, "Host:    %s (%s/%s, %d threads)\n\n",
		report.Queue.System.Hostname, report.Queue.System.OS, report.Queue.System.Arch, report.Queue.System.Threads)
	c.printJobs(report.Queue.Jobs)
}

func (c *CLI) printHistory(reports []*state.RunReport) {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tSAVED\tJOBS\tFAILED\tRUNTIME")
	fmt.Fprintln(w, "---\t------\t-----\t----\t------\t-------")
	for _, report := range reports {
		counts := report.Counts()
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			report.RunID,
			report.Status,
			report.SavedAt.Format("2006-01-02 15:04:05"),
			len(report.Queue.Jobs),
			counts[types.JobStateFailure],
			formatSeconds(report.Queue.TotalRuntime))
	}
	w.Flush()
}

// ExitCode maps command errors to process exit codes
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRunCanceled):
		return process.ExitCodeInterrupted
	default:
		return 1
	}
}
