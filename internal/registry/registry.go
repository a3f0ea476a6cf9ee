// Package registry enforces at most one in-flight versioning operation per
// path. Admission is an atomic check-and-insert; a periodic sweep reclaims
// entries whose completion signal was lost.
package registry

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Operation is the handle for one admitted versioning attempt. The worker
// marks it finished when its attempt ends, whatever the outcome.
type Operation struct {
	path      string
	startedAt time.Time
	finished  atomic.Bool
}

// Path returns the normalized path this operation was admitted for.
func (o *Operation) Path() string {
	return o.path
}

// StartedAt returns the admission time.
func (o *Operation) StartedAt() time.Time {
	return o.startedAt
}

// Finish marks the operation as done. Calling it repeatedly is harmless.
func (o *Operation) Finish() {
	o.finished.Store(true)
}

// Finished reports whether the operation has ended.
func (o *Operation) Finished() bool {
	return o.finished.Load()
}

// Registry tracks in-flight operations keyed by cleaned absolute path.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]*Operation
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		inflight: make(map[string]*Operation),
	}
}

// TryAdmit inserts an operation for path unless one is already in flight.
// It returns nil when the path is taken; check and insert happen under one
// lock so concurrent notifications for the same path admit exactly once.
func (r *Registry) TryAdmit(path string) *Operation {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.inflight[key]; exists {
		return nil
	}

	op := &Operation{
		path:      key,
		startedAt: time.Now(),
	}
	r.inflight[key] = op
	return op
}

// Complete removes the entry for path. Removing an absent path is a no-op.
func (r *Registry) Complete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.inflight, filepath.Clean(path))
}

// Sweep removes every entry whose operation already finished but was never
// completed, and returns how many it removed. It is a safety net against
// lost completion signals, not the primary removal path.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, op := range r.inflight {
		if op.Finished() {
			delete(r.inflight, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of in-flight operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.inflight)
}
