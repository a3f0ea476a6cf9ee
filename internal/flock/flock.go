// Package flock provides a non-blocking advisory lock probe over files.
// It is used to test whether a file can be read exclusively before a
// versioning copy starts; the lock is held for the duration of the copy.
package flock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked indicates another process currently holds a lock on the file.
var ErrLocked = errors.New("file is locked by another process")

// FileLock holds an acquired advisory lock together with the open handle.
type FileLock struct {
	f *os.File
}

// TryLock opens path read-only and attempts to take an exclusive advisory
// lock without blocking. It returns ErrLocked when the lock is held
// elsewhere; any other failure to open or lock is returned as-is.
func TryLock(path string) (*FileLock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for locking: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to lock file: %w", err)
	}

	return &FileLock{f: f}, nil
}

// File returns the locked read handle. The handle stays valid until Unlock.
func (l *FileLock) File() *os.File {
	return l.f
}

// Unlock releases the lock and closes the underlying handle. Calling it
// more than once is harmless.
func (l *FileLock) Unlock() error {
	if l.f == nil {
		return nil
	}

	lockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil

	if lockErr != nil {
		return fmt.Errorf("failed to release lock: %w", lockErr)
	}
	return closeErr
}
