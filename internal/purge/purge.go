// Package purge removes aged version copies from a watched tree.
package purge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ngpepin/create-file-versions/internal/version"
)

// Result summarizes one purge run. Removed counts deletions, or files that
// would have been deleted in dry-run mode.
type Result struct {
	Scanned int
	Matched int
	Removed int
	Errors  []string
}

// Purger scans a tree for version copies older than a cutoff
type Purger struct {
	root   string
	maxAge time.Duration
	logger *slog.Logger
	dryRun bool
}

// New creates a new purger
func New(root string, maxAge time.Duration, logger *slog.Logger, dryRun bool) *Purger {
	return &Purger{
		root:   root,
		maxAge: maxAge,
		logger: logger,
		dryRun: dryRun,
	}
}

// Run walks the tree and removes every version copy whose modification time
// is older than the cutoff. Unreadable subtrees are reported and skipped.
func (p *Purger) Run(ctx context.Context) (*Result, error) {
	cutoff := time.Now().Add(-p.maxAge)
	res := &Result{}

	p.logger.Info("starting purge",
		"root", p.root,
		"max_age", p.maxAge,
		"dry_run", p.dryRun)

	err := filepath.Walk(p.root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == p.root {
				return err
			}
			res.Errors = append(res.Errors, err.Error())
			p.logger.Warn("failed to scan path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		res.Scanned++
		if !version.IsVersionName(info.Name()) {
			return nil
		}
		res.Matched++

		if !info.ModTime().Before(cutoff) {
			return nil
		}

		age := time.Since(info.ModTime()).Round(time.Second)
		if p.dryRun {
			p.logger.Info("[dry-run] would remove version copy", "path", path, "age", age)
			res.Removed++
			return nil
		}

		if err := os.Remove(path); err != nil {
			res.Errors = append(res.Errors, err.Error())
			p.logger.Warn("failed to remove version copy", "path", path, "error", err)
			return nil
		}

		p.logger.Info("removed version copy", "path", path, "age", age)
		res.Removed++
		return nil
	})
	if err != nil {
		return res, err
	}

	p.logger.Info("purge complete",
		"scanned", res.Scanned,
		"matched", res.Matched,
		"removed", res.Removed,
		"errors", len(res.Errors))

	return res, nil
}
