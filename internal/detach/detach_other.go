//go:build !unix

package detach

import "os"

type osSystem struct{}

func (osSystem) Chdir(dir string) error      { return os.Chdir(dir) }
func (osSystem) Umask(int) int               { return 0 }
func (osSystem) Getpid() int                 { return os.Getpid() }
func (osSystem) Getsid() (int, error)        { return 0, ErrUnsupported }
func (osSystem) Executable() (string, error) { return os.Executable() }
func (osSystem) Environ() []string           { return os.Environ() }
func (osSystem) Getenv(key string) string    { return os.Getenv(key) }
func (osSystem) Unsetenv(key string) error   { return os.Unsetenv(key) }

func spawnProcess(SpawnSpec) (int, error) {
	return 0, ErrUnsupported
}
