package record

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Artifact is a recorded WAV owned by one session. Two sessions sharing a
// working directory would otherwise overwrite each other's file, so the path
// is guarded by an advisory lock until Remove.
type Artifact struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	removed bool
}

func acquireArtifact(path string) (*Artifact, error) {
	if path == "" {
		return nil, errors.New("artifact path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create artifact directory: %w", err)
		}
	}

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrArtifactBusy, path)
	}

	return &Artifact{path: path, lock: lock}, nil
}

func (a *Artifact) Path() string {
	return a.path
}

// Remove deletes the recording and then releases the lock. The lock is held
// until the file is gone, and the lock file itself stays on disk. It is safe
// to call more than once.
func (a *Artifact) Remove() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.removed {
		return nil
	}

	if err := os.Remove(a.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", a.path, err)
	}
	if err := a.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", a.path, err)
	}

	a.removed = true
	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}
