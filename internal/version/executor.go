package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ngpepin/create-file-versions/internal/config"
	"github.com/ngpepin/create-file-versions/internal/flock"
	"github.com/ngpepin/create-file-versions/internal/ledger"
	"github.com/ngpepin/create-file-versions/internal/metadata"
)

// Outcome classifies the result of a versioning attempt.
type Outcome string

const (
	// OutcomeVersioned means a version copy was created.
	OutcomeVersioned Outcome = "versioned"
	// OutcomeSkipped means the path was inside its cooldown window.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeBusy means the source stayed locked for the whole wait window.
	OutcomeBusy Outcome = "busy"
	// OutcomeFailed means the attempt errored.
	OutcomeFailed Outcome = "failed"
)

// ErrBusy is returned when the source file could not be locked within the
// configured wait window.
var ErrBusy = errors.New("source file is busy")

// Executor runs the versioning pipeline for a single admitted path
type Executor struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	meta   metadata.Replicator
	logger *slog.Logger
	dryRun bool
}

// NewExecutor creates a new versioning executor
func NewExecutor(cfg *config.Config, led *ledger.Ledger, meta metadata.Replicator, logger *slog.Logger, dryRun bool) *Executor {
	return &Executor{
		cfg:    cfg,
		ledger: led,
		meta:   meta,
		logger: logger,
		dryRun: dryRun,
	}
}

// Run versions path: it checks the cooldown ledger, locks the source, picks
// the next free version name, copies content and replicates metadata. The
// ledger is updated only when the copy succeeded.
func (e *Executor) Run(ctx context.Context, path string) (Outcome, error) {
	// Cooldown check
	if last, ok := e.ledger.LastSuccess(path); ok {
		if since := time.Since(last); since < e.cfg.Cooldown.Std() {
			e.logger.Debug("skipping recently versioned file", "path", path, "since_last", since)
			return OutcomeSkipped, nil
		}
	}

	// Acquire an exclusive lock, waiting out short-lived writers
	lock, err := e.waitForLock(ctx, path)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			e.logger.Warn("source file busy, giving up", "path", path, "waited", e.cfg.LockWaitTimeout.Std())
			return OutcomeBusy, err
		}
		e.logger.Error("failed to lock source file", "path", path, "error", err)
		return OutcomeFailed, err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	dest, err := NextVersionPath(path)
	if err != nil {
		e.logger.Error("failed to pick version name", "path", path, "error", err)
		return OutcomeFailed, err
	}

	if e.dryRun {
		e.logger.Info("[dry-run] would create version", "path", path, "dest", dest)
		return OutcomeVersioned, nil
	}

	start := time.Now()
	if err := e.copyBounded(ctx, lock.File(), dest); err != nil {
		e.logger.Error("failed to create version copy", "path", path, "dest", dest, "error", err)
		return OutcomeFailed, fmt.Errorf("failed to copy %s to %s: %w", path, dest, err)
	}

	e.replicateMetadata(path, dest)

	e.ledger.RecordSuccess(path, time.Now())
	e.logger.Info("version created", "path", path, "dest", dest, "duration", time.Since(start))
	return OutcomeVersioned, nil
}

// waitForLock polls for an exclusive lock on path until the wait window
// elapses.
func (e *Executor) waitForLock(ctx context.Context, path string) (*flock.FileLock, error) {
	deadline := time.Now().Add(e.cfg.LockWaitTimeout.Std())
	for {
		lock, err := flock.TryLock(path)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, flock.ErrLocked) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("source locked after %s: %w", e.cfg.LockWaitTimeout.Std(), ErrBusy)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.LockPollInterval.Std()):
		}
	}
}

// copyBounded copies the locked source handle to dest, giving up when the
// copy timeout elapses. It never leaves a partial destination behind.
func (e *Executor) copyBounded(ctx context.Context, src *os.File, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CopyTimeout.Std())
	defer cancel()

	// O_EXCL guards the slot picked by NextVersionPath against a concurrent
	// claimer between probe and create.
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create version file: %w", err)
	}

	_, err = io.Copy(out, &ctxReader{ctx: ctx, r: src})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

// replicateMetadata copies permission bits and ownership from src to dest.
// Each failure is logged and skipped; the version content is already
// complete at this point.
func (e *Executor) replicateMetadata(src, dest string) {
	mode, err := e.meta.PermissionBits(src)
	if err != nil {
		e.logger.Warn("failed to read source permissions", "path", src, "error", err)
	} else if err := e.meta.SetPermissionBits(dest, mode); err != nil {
		e.logger.Warn("failed to set version permissions", "path", dest, "error", err)
	}

	uid, gid, err := e.meta.Owner(src)
	if err != nil {
		e.logger.Warn("failed to read source ownership", "path", src, "error", err)
	} else if err := e.meta.SetOwner(dest, uid, gid); err != nil {
		e.logger.Warn("failed to set version ownership", "path", dest, "error", err)
	}
}

// ctxReader aborts an io.Copy when its context expires.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
