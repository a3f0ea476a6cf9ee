// Package monitor wires the watcher, eligibility filter, task registry and
// versioning executor into the running daemon.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ngpepin/create-file-versions/internal/config"
	"github.com/ngpepin/create-file-versions/internal/eligibility"
	"github.com/ngpepin/create-file-versions/internal/registry"
	"github.com/ngpepin/create-file-versions/internal/state"
	"github.com/ngpepin/create-file-versions/internal/version"
	"github.com/ngpepin/create-file-versions/internal/watch"
)

// Monitor owns the daemon's event loop and background jobs
type Monitor struct {
	cfg      *config.Config
	watcher  *watch.Watcher
	filter   *eligibility.Filter
	registry *registry.Registry
	executor *version.Executor
	poller   *state.Poller
	logger   *slog.Logger
}

// New creates a new monitor
func New(cfg *config.Config, watcher *watch.Watcher, filter *eligibility.Filter, reg *registry.Registry, exec *version.Executor, poller *state.Poller, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		watcher:  watcher,
		filter:   filter,
		registry: reg,
		executor: exec,
		poller:   poller,
		logger:   logger,
	}
}

// Run processes change notifications until ctx is canceled. It returns after
// all in-flight versioning work and background jobs have stopped.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.logger.Info("starting monitor",
		"watch_dir", m.cfg.WatchDir,
		"extensions", m.cfg.Extensions,
		"workers", m.cfg.Workers,
		"cooldown", m.cfg.Cooldown.Std())

	// The indicator is read once before the first event is processed, so
	// eligibility never runs against an unpolled state.
	m.poller.Refresh()

	var background sync.WaitGroup

	background.Add(1)
	go func() {
		defer background.Done()
		m.poller.Run(ctx)
	}()

	background.Add(1)
	go func() {
		defer background.Done()
		m.runSweeper(ctx)
	}()

	watchErr := make(chan error, 1)
	background.Add(1)
	go func() {
		defer background.Done()
		watchErr <- m.watcher.Run(ctx)
	}()

	m.dispatch(ctx)

	cancel()
	background.Wait()
	return <-watchErr
}

// dispatch feeds settled notifications through the eligibility filter and
// hands admitted paths to the worker pool. It returns once the notification
// channel is closed and all workers have finished.
func (m *Monitor) dispatch(ctx context.Context) {
	var workers sync.WaitGroup
	slots := make(chan struct{}, m.cfg.Workers)

	for note := range m.watcher.Events() {
		decision := m.filter.Check(note.Path)
		if !decision.Eligible {
			m.logger.Debug("change not eligible", "path", note.Path, "reason", string(decision.Reason))
			continue
		}

		// Admission happens before the worker starts; a second notification
		// for the same path is dropped here, not serialized behind a worker.
		op := m.registry.TryAdmit(note.Path)
		if op == nil {
			m.logger.Debug("versioning already in flight, dropping change", "path", note.Path)
			continue
		}

		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			op.Finish()
			m.registry.Complete(note.Path)
			continue
		}

		workers.Add(1)
		go func(path string, op *registry.Operation) {
			defer workers.Done()
			defer func() { <-slots }()
			defer m.registry.Complete(path)
			defer op.Finish()

			_, _ = m.executor.Run(ctx, path)
		}(note.Path, op)
	}

	workers.Wait()
}

// runSweeper periodically reclaims registry entries whose completion signal
// was lost.
func (m *Monitor) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.registry.Sweep(); n > 0 {
				m.logger.Debug("swept finished registry entries", "count", n)
			}
		}
	}
}
