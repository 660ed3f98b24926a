package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockedFile is a report file held under an advisory lock for the whole run,
// so concurrent hunts appending to the same file never interleave.
type LockedFile struct {
	*os.File
	lock *flock.Flock
}

// OpenLockedFile opens path for appending, creating it and its directory if
// needed, and takes an exclusive lock on path+".lock".
func OpenLockedFile(path string) (*LockedFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open output file %s: %w", path, err)
	}

	return &LockedFile{File: f, lock: lock}, nil
}

// Close syncs and closes the file, then releases the lock.
func (lf *LockedFile) Close() error {
	_ = lf.File.Sync()
	closeErr := lf.File.Close()
	if err := lf.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", lf.Name(), err)
	}
	return closeErr
}
