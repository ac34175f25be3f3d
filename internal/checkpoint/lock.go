package checkpoint

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Open when another run holds the checkpoint.
var ErrLocked = errors.New("checkpoint is in use by another run")

// attempts before a lock file that keeps being replaced is reported as held
const lockAttempts = 3

// acquireLock takes <path>.lock. A lock obtained on a file that a releasing
// run has already unlinked is dropped and taken again on the current file.
func acquireLock(path string) (*flock.Flock, error) {
	for range lockAttempts {
		lock := flock.New(path + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire checkpoint lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		current, err := holdsLockFile(lock)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("acquire checkpoint lock: %w", err)
		}
		if current {
			return lock, nil
		}
		_ = lock.Unlock()
	}
	return nil, fmt.Errorf("%s: %w", path, ErrLocked)
}

// holdsLockFile reports whether the locked handle is still the file at the
// lock path.
func holdsLockFile(lock *flock.Flock) (bool, error) {
	held, err := lock.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(lock.Path())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(held, onDisk), nil
}

// releaseLock unlinks the lock file while still holding it, then unlocks.
func releaseLock(lock *flock.Flock) error {
	if lock == nil {
		return nil
	}
	if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = lock.Unlock()
		return fmt.Errorf("remove checkpoint lock: %w", err)
	}
	return lock.Unlock()
}
