// Package metadata replicates file ownership and permission bits from a
// source file onto its version copy using direct OS calls.
package metadata

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Replicator provides the metadata operations the versioning executor
// performs after a successful copy.
type Replicator interface {
	// PermissionBits returns the permission bits of path.
	PermissionBits(path string) (os.FileMode, error)
	// SetPermissionBits applies permission bits to path.
	SetPermissionBits(path string, mode os.FileMode) error
	// Owner returns the owning user and group of path.
	Owner(path string) (uid, gid int, err error)
	// SetOwner applies an owning user and group to path.
	SetOwner(path string, uid, gid int) error
}

// OSReplicator implements Replicator against the local filesystem.
type OSReplicator struct{}

// NewOSReplicator creates a new OS-backed replicator.
func NewOSReplicator() *OSReplicator {
	return &OSReplicator{}
}

// PermissionBits returns the permission bits of path.
func (r *OSReplicator) PermissionBits(path string) (os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Mode().Perm(), nil
}

// SetPermissionBits applies permission bits to path.
func (r *OSReplicator) SetPermissionBits(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode.Perm()); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return nil
}

// Owner returns the owning user and group of path.
func (r *OSReplicator) Owner(path string) (int, int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return int(st.Uid), int(st.Gid), nil
}

// SetOwner applies an owning user and group to path.
func (r *OSReplicator) SetOwner(path string, uid, gid int) error {
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %s: %w", path, err)
	}
	return nil
}
