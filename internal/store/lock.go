package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"tracklist/internal/media"
)

// Lock is the per-account lock. The sentinel file marks the account as in
// use; an advisory flock on it is held while this process owns it.
type Lock struct {
	path  string
	lock  *flock.Flock
	owned bool
	// held reports whether this process obtained the flock. An override
	// can own the account without it, and then leaves the sentinel alone.
	held bool
}

// NewLock binds a lock file path.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Acquire claims the account. An existing sentinel fails with ErrLocked
// unless override is set; stale sentinels left by a crash must be removed by
// hand.
func (l *Lock) Acquire(override bool) error {
	if l.owned {
		return nil
	}
	if _, err := os.Stat(l.path); err == nil {
		if !override {
			return media.Wrap(media.ErrLocked, "store", "lock",
				fmt.Sprintf("lock file %s exists; another instance is running or a previous run crashed", l.path), nil)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat lock file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create account directory: %w", err)
	}

	l.lock = flock.New(l.path)
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked && !override {
		return media.Wrap(media.ErrLocked, "store", "lock", "another process holds the account lock", nil)
	}
	l.owned = true
	l.held = locked
	return nil
}

// Release drops the flock and removes the sentinel when this process held
// it. It is safe to call on a lock that was never acquired.
func (l *Lock) Release() error {
	if !l.owned {
		return nil
	}
	held := l.held
	l.owned, l.held = false, false
	var errs []error
	if l.lock != nil {
		if err := l.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
	}
	if !held {
		return errors.Join(errs...)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	return errors.Join(errs...)
}

// Path returns the sentinel path.
func (l *Lock) Path() string {
	return l.path
}
