package flock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "target.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTryLock(t *testing.T) {
	path := writeTempFile(t)

	lock, err := TryLock(path)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if lock.File() == nil {
		t.Fatal("expected an open handle on the locked file")
	}
	if err := lock.Unlock(); err != nil {
		t.Errorf("Unlock: %v", err)
	}
}

func TestTryLock_AlreadyLocked(t *testing.T) {
	path := writeTempFile(t)

	// flock locks are per open file description, so a second open of the
	// same file within this process contends with the first.
	first, err := TryLock(path)
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	defer func() {
		_ = first.Unlock()
	}()

	_, err = TryLock(path)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second TryLock error = %v, want ErrLocked", err)
	}
}

func TestTryLock_ReleaseAllowsRelock(t *testing.T) {
	path := writeTempFile(t)

	first, err := TryLock(path)
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	second, err := TryLock(path)
	if err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	_ = second.Unlock()
}

func TestTryLock_MissingFile(t *testing.T) {
	_, err := TryLock(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrLocked) {
		t.Errorf("missing file should not report ErrLocked, got %v", err)
	}
}

func TestUnlock_Idempotent(t *testing.T) {
	path := writeTempFile(t)

	lock, err := TryLock(path)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Errorf("second Unlock should be a no-op, got %v", err)
	}
}

func TestFileLock_ReadsThroughHandle(t *testing.T) {
	path := writeTempFile(t)

	lock, err := TryLock(path)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	buf := make([]byte, 7)
	if _, err := lock.File().Read(buf); err != nil {
		t.Fatalf("read through locked handle: %v", err)
	}
	if string(buf) != "content" {
		t.Errorf("read %q, want %q", buf, "content")
	}
}
