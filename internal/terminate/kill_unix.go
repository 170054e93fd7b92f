//go:build unix

package terminate

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func defaultKill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
