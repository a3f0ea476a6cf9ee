// Package ledger records when each path was last versioned successfully.
// The versioning executor consults it to suppress version storms from
// editors that save repeatedly.
package ledger

import (
	"path/filepath"
	"sync"
	"time"
)

// Ledger maps cleaned absolute paths to the time of their last successful
// version. Entries are written only after a copy fully succeeded; skipped
// and failed attempts leave the ledger untouched.
type Ledger struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		last: make(map[string]time.Time),
	}
}

// LastSuccess returns the recorded timestamp for path, if any.
func (l *Ledger) LastSuccess(path string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at, ok := l.last[filepath.Clean(path)]
	return at, ok
}

// RecordSuccess stores at as the last successful version time for path.
func (l *Ledger) RecordSuccess(path string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last[filepath.Clean(path)] = at
}

// Len returns the number of tracked paths.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.last)
}
