// Package state persists run reports and guards a state directory against
// concurrent runs
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/benchrunner/benchrunner/pkg/events"
	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
)

const (
	runsDir  = "runs"
	lockFile = "run.lock"
)

// ErrLocked is returned by Lock while another live process holds the lock
var ErrLocked = errors.New("state directory is locked by another run")

// RunStatus is the outcome recorded in a report
type RunStatus string

const (
	RunStatusDone     RunStatus = "done"
	RunStatusCanceled RunStatus = "canceled"
)

// RunReport is the persisted record of one run
type RunReport struct {
	RunID   string              `json:"runId"`
	Status  RunStatus           `json:"status"`
	SavedAt time.Time           `json:"savedAt"`
	Queue   types.QueueSnapshot `json:"queue"`
}

// Counts tallies the jobs of the report per state
func (r *RunReport) Counts() map[types.JobState]int {
	counts := make(map[types.JobState]int)
	for _, job := range r.Queue.Jobs {
		counts[job.State]++
	}
	return counts
}

// Store reads and writes run reports below a state directory
type Store struct {
	stateDir string
	logger   logger.Logger
	fs       *utils.FileSystemUtils
	mu       sync.Mutex
}

// NewStore creates a store rooted at stateDir
func NewStore(stateDir string, log logger.Logger) *Store {
	return &Store{
		stateDir: stateDir,
		logger:   log,
		fs:       utils.NewFileSystemUtils(),
	}
}

// Dir returns the state directory
func (s *Store) Dir() string {
	return s.stateDir
}

// SaveRun writes the report of q as runs/<runID>.json
func (s *Store) SaveRun(runID string, status RunStatus, q *types.Queue) (*RunReport, error) {
	report := &RunReport{
		RunID:   runID,
		Status:  status,
		SavedAt: time.Now(),
		Queue:   q.Snapshot(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.reportPath(runID)
	if err := s.fs.WriteFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("failed to write run report: %w", err)
	}

	s.logger.Debug("Saved run report",
		logger.WithField("path", path),
		logger.WithField("status", status))
	return report, nil
}

// LoadRun reads the report of runID
func (s *Store) LoadRun(runID string) (*RunReport, error) {
	data, err := os.ReadFile(s.reportPath(runID))
	if err != nil {
		return nil, err
	}

	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &report, nil
}

// ListRuns returns all readable reports, newest first
func (s *Store) ListRuns() ([]*RunReport, error) {
	entries, err := os.ReadDir(filepath.Join(s.stateDir, runsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var reports []*RunReport
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		runID := strings.TrimSuffix(entry.Name(), ".json")
		report, err := s.LoadRun(runID)
		if err != nil {
			s.logger.Warn("Failed to load run report",
				logger.WithField("run_id", runID),
				logger.WithError(err))
			continue
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SavedAt.After(reports[j].SavedAt)
	})
	return reports, nil
}

// Prune deletes all but the newest keep reports
func (s *Store) Prune(keep int) (int, error) {
	reports, err := s.ListRuns()
	if err != nil || len(reports) <= keep {
		return 0, err
	}

	removed := 0
	for _, report := range reports[keep:] {
		if err := os.Remove(s.reportPath(report.RunID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove run report: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Lock records the current process as the active run. A lock left behind by
// a dead process is taken over.
func (s *Store) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, pid, err := s.isLocked()
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("%w (pid %d)", ErrLocked, pid)
	}

	return s.fs.WriteFileAtomic(filepath.Join(s.stateDir, lockFile), []byte(strconv.Itoa(os.Getpid())))
}

// Unlock removes the lock if this process holds it
func (s *Store) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid, err := s.lockOwner()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(filepath.Join(s.stateDir, lockFile))
}

// IsLocked reports whether another live process holds the lock
func (s *Store) IsLocked() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked, _, err := s.isLocked()
	return locked, err
}

func (s *Store) isLocked() (bool, int, error) {
	pid, err := s.lockOwner()
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	if pid == os.Getpid() {
		return false, pid, nil
	}

	alive, err := process.PidExists(int32(pid))
	if err != nil {
		s.logger.Debug("Cannot check lock owner", logger.WithField("pid", pid), logger.WithError(err))
		return false, pid, nil
	}
	return alive, pid, nil
}

func (s *Store) lockOwner() (int, error) {
	data, err := os.ReadFile(filepath.Join(s.stateDir, lockFile))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("corrupt lock file: %w", err)
	}
	return pid, nil
}

func (s *Store) reportPath(runID string) string {
	return filepath.Join(s.stateDir, runsDir, runID+".json")
}

// Reporter is a run listener that saves a report when a run ends: after
// the done notification, or after the result of a canceled job.
type Reporter struct {
	events.Nop

	store *Store
	runID func() string

	mu   sync.Mutex
	last *RunReport
	err  error
}

// NewReporter saves reports to store under the id returned by runID
func NewReporter(store *Store, runID func() string) *Reporter {
	return &Reporter{store: store, runID: runID}
}

// Result saves the report once a canceled job has finished
func (r *Reporter) Result(job *types.Job, q *types.Queue) {
	if job.State() == types.JobStateCanceled {
		r.save(RunStatusCanceled, q)
	}
}

// Done saves the report of a completed run
func (r *Reporter) Done(q *types.Queue) {
	r.save(RunStatusDone, q)
}

// Last returns the most recent report and save error
func (r *Reporter) Last() (*RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.err
}

func (r *Reporter) save(status RunStatus, q *types.Queue) {
	report, err := r.store.SaveRun(r.runID(), status, q)
	if err != nil {
		r.store.logger.Error("Failed to save run report", logger.WithError(err))
	}

	r.mu.Lock()
	r.last, r.err = report, err
	r.mu.Unlock()
}
