//go:build unix

package detach

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

type osSystem struct{}

func (osSystem) Chdir(dir string) error      { return os.Chdir(dir) }
func (osSystem) Umask(mask int) int          { return unix.Umask(mask) }
func (osSystem) Getpid() int                 { return os.Getpid() }
func (osSystem) Getsid() (int, error)        { return unix.Getsid(0) }
func (osSystem) Executable() (string, error) { return os.Executable() }
func (osSystem) Environ() []string           { return os.Environ() }
func (osSystem) Getenv(key string) string    { return os.Getenv(key) }
func (osSystem) Unsetenv(key string) error   { return os.Unsetenv(key) }

func spawnProcess(spec SpawnSpec) (int, error) {
	attr := &os.ProcAttr{
		Env:   spec.Env,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
		Sys:   &syscall.SysProcAttr{Setsid: spec.Setsid},
	}
	proc, err := os.StartProcess(spec.Path, spec.Args, attr)
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	if err := proc.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}
