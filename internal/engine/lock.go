package engine

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// Only flock's documented surface (New/TryLock/Unlock) is used here — the
// underlying file handle is not part of its public API.

// dbLock wraps the exclusive, file-based advisory lock that enforces §3
// invariant 6 and §5's "at most one process may hold a database file at a
// time" rule. gofrs/flock gives a real OS-level flock(2)/LockFileEx
// implementation instead of a hand-rolled pid-file convention.
type dbLock struct {
	path string
	fl   *flock.Flock
}

func acquireLock(dbPath string) (*dbLock, error) {
	lockPath := dbPath + ".pid"
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, errAlreadyLocked(dbPath)
	}
	return &dbLock{path: lockPath, fl: fl}, nil
}

// release unlocks and removes the pid file, matching §3's "the lock file
// is ... removed on clean shutdown" lifecycle.
func (l *dbLock) release() error {
	if l == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	return os.Remove(l.path)
}
