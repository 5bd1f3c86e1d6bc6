package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"despatch/internal/config"
	"despatch/internal/services"
)

// Locker guards a journal file against concurrent sessions.
type Locker interface {
	// Acquire takes ownership or returns an error matching services.ErrBusy
	// when another session holds it.
	Acquire() error
	// Release gives ownership up. Releasing a lock that is not held is a no-op.
	Release() error
	// Suspend and Resume bracket a write to the journal file by the owner.
	Suspend() error
	Resume() error
}

// ReadOnlyLocker implements the lock by clearing the write bits of the
// journal file while held.
type ReadOnlyLocker struct {
	path string
}

// NewReadOnlyLocker returns a locker toggling the writable flag of path.
func NewReadOnlyLocker(path string) *ReadOnlyLocker {
	return &ReadOnlyLocker{path: path}
}

func (l *ReadOnlyLocker) Acquire() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return services.Wrap(services.ErrIO, "journal", "lock", l.path, err)
	}
	if !writable(info) {
		return services.Wrap(services.ErrBusy, "journal", "lock", fmt.Sprintf("%s is in use by another session", l.path), nil)
	}
	return l.lock(info)
}

func (l *ReadOnlyLocker) Release() error {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrIO, "journal", "unlock", l.path, err)
	}
	if writable(info) {
		return nil
	}
	if err := os.Chmod(l.path, info.Mode().Perm()|0o200); err != nil {
		return services.Wrap(services.ErrIO, "journal", "unlock", l.path, err)
	}
	return nil
}

func (l *ReadOnlyLocker) Suspend() error { return l.Release() }

func (l *ReadOnlyLocker) Resume() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return services.Wrap(services.ErrIO, "journal", "lock", l.path, err)
	}
	return l.lock(info)
}

func (l *ReadOnlyLocker) lock(info fs.FileInfo) error {
	if err := os.Chmod(l.path, info.Mode().Perm()&^0o222); err != nil {
		return services.Wrap(services.ErrIO, "journal", "lock", l.path, err)
	}
	return nil
}

// writable inspects the owner write bit rather than calling access(2) so the
// result does not depend on the effective user (root bypasses access checks).
func writable(info fs.FileInfo) bool {
	return info.Mode().Perm()&0o200 != 0
}

// LockerFor returns the locker for a configured journal.lock mode. Unknown
// modes fall back to the read-only flag.
func LockerFor(mode, path string) Locker {
	if mode == config.LockFlock {
		return NewFlockLocker(path)
	}
	return NewReadOnlyLocker(path)
}
