package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another live daemon holds the guard.
var ErrLocked = errors.New("pid file guard held by another process")

// Guard is an exclusive advisory lock stored next to the pidfile. The kernel
// releases it when the holder exits, even on SIGKILL.
type Guard struct {
	lock *flock.Flock
}

// NewGuard returns a guard for the lock file belonging to s.
func (s *Store) NewGuard() *Guard {
	return &Guard{lock: flock.New(s.path + ".lock")}
}

// Path returns the lock file location.
func (g *Guard) Path() string {
	return g.lock.Path()
}

// Acquire takes the lock without blocking.
func (g *Guard) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(g.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := g.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", g.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, g.lock.Path())
	}
	return nil
}

// Release drops the lock if held.
func (g *Guard) Release() error {
	if !g.lock.Locked() {
		return nil
	}
	if err := g.lock.Unlock(); err != nil {
		return fmt.Errorf("release %s: %w", g.lock.Path(), err)
	}
	return nil
}
