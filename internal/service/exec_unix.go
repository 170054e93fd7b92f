//go:build unix

package service

import "golang.org/x/sys/unix"

func execImage(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}
