package assignments

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

// Watcher applies the assignments file once, then reapplies it whenever the
// file changes. Change bursts are debounced so an editor writing the file in
// several syscalls triggers a single reconciliation.
type Watcher struct {
	reconciler *Reconciler
	logger     *zap.Logger
	health     *telemetry.HealthTracker
	path       string
	debounce   time.Duration
}

type WatcherOptions struct {
	Path     string
	Debounce time.Duration
	Health   *telemetry.HealthTracker
	Logger   *zap.Logger
}

func NewWatcher(reconciler *Reconciler, opts WatcherOptions) *Watcher {
	if reconciler == nil {
		panic("assignments: reconciler is required")
	}
	if opts.Path == "" {
		panic("assignments: path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = domain.DefaultAssignmentsDebounceMs * time.Millisecond
	}
	return &Watcher{
		reconciler: reconciler,
		logger:     logger.Named("assignments"),
		health:     opts.Health,
		path:       opts.Path,
		debounce:   debounce,
	}
}

// Run blocks until ctx ends. A file that is missing or invalid is logged and
// skipped; the watch stays up so a corrected file converges on the next write.
func (w *Watcher) Run(ctx context.Context) error {
	w.applyFromFile(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assignments watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: tools that replace the file
	// by rename would otherwise drop the watch.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("assignments watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			w.applyFromFile(ctx)
		}
	}
}

func (w *Watcher) applyFromFile(ctx context.Context) {
	set, err := ReadFile(w.path)
	if err != nil {
		w.logger.Warn("assignments load failed", zap.String("path", w.path), zap.Error(err))
		w.health.SetDegraded("assignments", err.Error())
		return
	}
	w.health.SetHealthy("assignments")
	w.reconciler.Apply(ctx, set)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
