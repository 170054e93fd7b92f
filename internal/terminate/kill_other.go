//go:build !unix

package terminate

import (
	"errors"
	"syscall"
)

func defaultKill(int, syscall.Signal) error {
	return errors.New("terminate: signals unsupported on this platform")
}
