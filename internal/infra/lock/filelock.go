package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process on this host holds the lock.
var ErrLocked = errors.New("another cycle run is in progress")

// FileLock serialises batch runs on a single host through an exclusive file lock.
type FileLock struct {
	path string
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

func (l *FileLock) Path() string {
	return l.path
}

// Run takes the lock without waiting, runs fn and releases the lock.
// It returns ErrLocked without calling fn when the lock is held elsewhere.
func (l *FileLock) Run(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer fl.Unlock()

	return fn()
}
