//go:build unix

package pidfile

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// KeepAcrossExec clears close-on-exec on the held lock so a program exec'd
// in place of this process keeps the guard.
func (g *Guard) KeepAcrossExec() error {
	fh := g.lock.Fh()
	if fh == nil || !g.lock.Locked() {
		return fmt.Errorf("keep %s across exec: lock not held", g.lock.Path())
	}
	if _, err := unix.FcntlInt(fh.Fd(), unix.F_SETFD, 0); err != nil {
		return fmt.Errorf("keep %s across exec: %w", g.lock.Path(), err)
	}
	return nil
}
