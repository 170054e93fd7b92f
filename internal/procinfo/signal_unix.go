//go:build unix

package procinfo

import "golang.org/x/sys/unix"

func signalZero(pid int) error {
	return unix.Kill(pid, 0)
}
