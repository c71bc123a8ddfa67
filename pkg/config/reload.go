package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/benchrunner/benchrunner/pkg/logger"
	"github.com/benchrunner/benchrunner/pkg/types"
	"github.com/benchrunner/benchrunner/pkg/utils"
)

// DefaultDebounce is how long the file must stay quiet before a reload
const DefaultDebounce = 500 * time.Millisecond

// ErrConfigRemoved is reported when the watched file disappears
var ErrConfigRemoved = errors.New("configuration file was removed")

// ReloadCallback receives the reloaded configuration or the reload error.
// Exactly one of the two is non-nil.
type ReloadCallback func(*types.BenchmarkConfig, error)

// ReloadManager watches the definitions file and reloads it when its
// content changes. Saves that leave the content unchanged are ignored.
type ReloadManager struct {
	configPath string
	logger     logger.Logger
	fs         *utils.FileSystemUtils

	mu        sync.Mutex
	callbacks []ReloadCallback
	debounce  time.Duration
	timer     *time.Timer
	lastHash  string
	watcher   *fsnotify.Watcher
	cancel    context.CancelFunc

	// reloads are handled one at a time, callbacks in registration order
	reloadMu sync.Mutex
}

// NewReloadManager creates a reload manager for configPath
func NewReloadManager(configPath string, log logger.Logger) *ReloadManager {
	return &ReloadManager{
		configPath: configPath,
		logger:     log,
		fs:         utils.NewFileSystemUtils(),
		debounce:   DefaultDebounce,
	}
}

// AddCallback adds a reload callback
func (rm *ReloadManager) AddCallback(callback ReloadCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = append(rm.callbacks, callback)
}

// SetDebouncePeriod sets how long events are coalesced before a reload
func (rm *ReloadManager) SetDebouncePeriod(period time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.debounce = period
}

// ConfigPath returns the path of the watched file
func (rm *ReloadManager) ConfigPath() string {
	return rm.configPath
}

// StartWatching watches the directory of the definitions file, so editors
// that replace the file on save are followed
func (rm *ReloadManager) StartWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.watcher != nil {
		return fmt.Errorf("already watching %s", rm.configPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(rm.configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	if hash, err := rm.fs.GetFileHash(rm.configPath); err == nil {
		rm.lastHash = hash
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.watcher = watcher
	rm.cancel = cancel
	go rm.watchLoop(ctx, watcher)

	rm.logger.Debug("Watching definitions file", logger.WithField("path", rm.configPath))
	return nil
}

// StopWatching stops watching; a pending debounced reload is dropped
func (rm *ReloadManager) StopWatching() error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.watcher == nil {
		return nil
	}

	rm.cancel()
	if rm.timer != nil {
		rm.timer.Stop()
		rm.timer = nil
	}
	err := rm.watcher.Close()
	rm.watcher = nil
	return err
}

// IsWatching returns whether the manager is currently watching
func (rm *ReloadManager) IsWatching() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.watcher != nil
}

// TriggerReload reloads immediately, even if the content is unchanged
func (rm *ReloadManager) TriggerReload() {
	rm.mu.Lock()
	rm.lastHash = ""
	rm.mu.Unlock()
	rm.reload()
}

func (rm *ReloadManager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	name := filepath.Base(rm.configPath)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || event.Op == fsnotify.Chmod {
				continue
			}
			rm.logger.Debug("Definitions file event", logger.WithField("event", event.String()))
			rm.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			rm.logger.Error("Definitions watcher error", logger.WithError(err))
			rm.notify(nil, err)
		}
	}
}

// schedule restarts the debounce timer; a burst of events yields one reload
func (rm *ReloadManager) schedule() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.timer != nil {
		rm.timer.Stop()
	}
	rm.timer = time.AfterFunc(rm.debounce, rm.reload)
}

func (rm *ReloadManager) reload() {
	rm.reloadMu.Lock()
	defer rm.reloadMu.Unlock()

	hash, err := rm.fs.GetFileHash(rm.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrConfigRemoved, rm.configPath)
		}
		rm.logger.Error("Definitions file unavailable", logger.WithError(err))
		rm.notify(nil, err)
		return
	}

	rm.mu.Lock()
	unchanged := hash == rm.lastHash
	rm.lastHash = hash
	rm.mu.Unlock()
	if unchanged {
		rm.logger.Debug("Definitions unchanged, skipping reload")
		return
	}

	cfg, err := NewManager().LoadConfig(rm.configPath)
	if err != nil {
		rm.logger.Error("Failed to reload definitions", logger.WithError(err))
		rm.notify(nil, err)
		return
	}

	rm.logger.Info("Definitions reloaded", logger.WithField("benchmarks", len(cfg.Definitions)))
	rm.notify(cfg, nil)
}

func (rm *ReloadManager) notify(cfg *types.BenchmarkConfig, err error) {
	rm.mu.Lock()
	callbacks := make([]ReloadCallback, len(rm.callbacks))
	copy(callbacks, rm.callbacks)
	rm.mu.Unlock()

	for _, cb := range callbacks {
		rm.call(cb, cfg, err)
	}
}

func (rm *ReloadManager) call(cb ReloadCallback, cfg *types.BenchmarkConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			rm.logger.Error("Reload callback panic recovered", logger.WithField("panic", r))
		}
	}()
	cb(cfg, err)
}
