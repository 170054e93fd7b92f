//go:build linux

package redirect

import "golang.org/x/sys/unix"

// dup2 is absent on some Linux architectures (arm64, riscv64); dup3 with no
// flags is equivalent except that it rejects oldfd == newfd.
func dupOnto(oldfd, newfd int) error {
	if oldfd == newfd {
		return nil
	}
	return unix.Dup3(oldfd, newfd, 0)
}
