// Package lock provides a cross-process advisory lock over a data
// directory, so two CLI invocations against the same dataDir (for
// example two concurrent `index` commands) don't race on the on-disk
// embedding cache or project registry. It complements, not replaces,
// registry.TreeMutex: TreeMutex serializes concurrent work inside one
// process, this serializes across processes.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock wraps gofrs/flock with explicit locked-state tracking.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a FileLock guarding dataDir via <dataDir>/.eideticmcp.lock.
func New(dataDir string) *FileLock {
	path := filepath.Join(dataDir, ".eideticmcp.lock")
	return &FileLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. It returns
// false, nil if another process already holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }
