package journal

import (
	"fmt"

	"github.com/gofrs/flock"

	"despatch/internal/services"
)

// FlockLocker holds an advisory OS lock on a sidecar file next to the
// journal for the whole session. Writes need no bracketing.
type FlockLocker struct {
	path string
	lock *flock.Flock
}

// NewFlockLocker locks journalPath + ".lock".
func NewFlockLocker(journalPath string) *FlockLocker {
	path := journalPath + ".lock"
	return &FlockLocker{path: path, lock: flock.New(path)}
}

func (l *FlockLocker) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrIO, "journal", "lock", l.path, err)
	}
	if !ok {
		return services.Wrap(services.ErrBusy, "journal", "lock", fmt.Sprintf("%s is held by another session", l.path), nil)
	}
	return nil
}

func (l *FlockLocker) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return services.Wrap(services.ErrIO, "journal", "unlock", l.path, err)
	}
	return nil
}

func (l *FlockLocker) Suspend() error { return nil }

func (l *FlockLocker) Resume() error { return nil }
