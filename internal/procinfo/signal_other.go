//go:build !unix

package procinfo

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v4/process"
)

var errNotFound = errors.New("process not found")

func signalZero(pid int) error {
	exists, err := process.PidExistsWithContext(context.Background(), int32(pid))
	if err != nil {
		return err
	}
	if !exists {
		return errNotFound
	}
	return nil
}
