package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPermissionBits_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.txt")
	dst := filepath.Join(tmpDir, "dst.txt")
	if err := os.WriteFile(src, []byte("a"), 0640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("b"), 0600); err != nil {
		t.Fatal(err)
	}

	r := NewOSReplicator()

	mode, err := r.PermissionBits(src)
	if err != nil {
		t.Fatalf("PermissionBits: %v", err)
	}
	if mode != 0640 {
		t.Fatalf("PermissionBits = %v, want 0640", mode)
	}

	if err := r.SetPermissionBits(dst, mode); err != nil {
		t.Fatalf("SetPermissionBits: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("destination mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owned.txt")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewOSReplicator()
	uid, gid, err := r.Owner(path)
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if uid != os.Getuid() {
		t.Errorf("uid = %d, want %d", uid, os.Getuid())
	}
	if gid != os.Getgid() {
		t.Errorf("gid = %d, want %d", gid, os.Getgid())
	}
}

func TestSetOwner_SameOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owned.txt")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	// Chown to the current owner works without privileges and verifies the
	// call path end to end.
	r := NewOSReplicator()
	if err := r.SetOwner(path, os.Getuid(), os.Getgid()); err != nil {
		t.Fatalf("SetOwner: %v", err)
	}
}

func TestMissingFileErrors(t *testing.T) {
	r := NewOSReplicator()
	missing := filepath.Join(t.TempDir(), "no-such-file")

	if _, err := r.PermissionBits(missing); err == nil {
		t.Error("PermissionBits should fail for a missing file")
	}
	if err := r.SetPermissionBits(missing, 0644); err == nil {
		t.Error("SetPermissionBits should fail for a missing file")
	}
	if _, _, err := r.Owner(missing); err == nil {
		t.Error("Owner should fail for a missing file")
	}
	if err := r.SetOwner(missing, os.Getuid(), os.Getgid()); err == nil {
		t.Error("SetOwner should fail for a missing file")
	}
}
