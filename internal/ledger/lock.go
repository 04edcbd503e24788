package ledger

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process holds the ledger.
var ErrLocked = errors.New("ledger is locked by another crowdin-sync process")

// FileLock is an exclusive advisory lock on a ledger, held for one run.
type FileLock struct {
	fl *flock.Flock
}

// Lock takes a non-blocking exclusive lock on path + ".lock".
func Lock(path string) (*FileLock, error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking ledger %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &FileLock{fl: fl}, nil
}

// Unlock releases the lock. The lock file is left in place so every run
// locks the same inode.
func (l *FileLock) Unlock() error {
	if l == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking ledger: %w", err)
	}
	return nil
}
