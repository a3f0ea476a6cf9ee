// Package state tracks whether versioning is enabled. The value comes from
// an external indicator file that operators toggle with the enable and
// disable commands; the daemon refreshes it on a fixed interval and fails
// safe to disabled whenever the indicator cannot be read.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	indicatorEnabled  = "enabled"
	indicatorDisabled = "disabled"
)

// Flag is the process-wide enabled switch. It is written by exactly one
// poller and read by any number of concurrent eligibility checks.
type Flag struct {
	enabled atomic.Bool
}

// Enabled reports the last observed indicator value.
func (f *Flag) Enabled() bool {
	return f.enabled.Load()
}

func (f *Flag) set(v bool) {
	f.enabled.Store(v)
}

// ReadIndicator reads the indicator file and interprets its content.
// Anything other than "enabled" or "disabled" (case-insensitive,
// surrounding whitespace ignored) is an error.
func ReadIndicator(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read state indicator: %w", err)
	}

	switch value := strings.ToLower(strings.TrimSpace(string(data))); value {
	case indicatorEnabled:
		return true, nil
	case indicatorDisabled:
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized state indicator value %q", value)
	}
}

// WriteIndicator writes the indicator file atomically so a concurrent
// poller read never observes a partial value.
func WriteIndicator(path string, enabled bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create indicator directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".state-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp indicator: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	value := indicatorDisabled
	if enabled {
		value = indicatorEnabled
	}

	if _, err := tmpFile.WriteString(value + "\n"); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write indicator: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to set indicator permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close indicator: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace indicator: %w", err)
	}
	return nil
}

// Poller refreshes a Flag from the indicator file. It is the flag's only
// writer.
type Poller struct {
	flag     *Flag
	path     string
	interval time.Duration
	logger   *slog.Logger

	seen     bool
	lastSeen bool
}

// NewPoller creates a poller for the indicator at path.
func NewPoller(flag *Flag, path string, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		flag:     flag,
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Refresh reads the indicator once and updates the flag. An unreadable or
// missing indicator forces disabled. The resulting state is logged on the
// first read and afterwards only when it changed, to keep steady-state
// operation quiet.
func (p *Poller) Refresh() {
	enabled, err := ReadIndicator(p.path)
	if err != nil {
		enabled = false
	}
	p.flag.set(enabled)

	if p.seen && enabled == p.lastSeen {
		return
	}
	p.seen = true
	p.lastSeen = enabled

	if enabled {
		p.logger.Info("versioning enabled", "indicator", p.path)
		return
	}
	if err != nil {
		p.logger.Info("versioning disabled", "indicator", p.path, "cause", err)
		return
	}
	p.logger.Info("versioning disabled", "indicator", p.path)
}

// Run performs the startup read, then re-reads the indicator on every
// interval tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh()
		}
	}
}
