//go:build !unix

package service

import "errors"

func execImage(string, []string, []string) error {
	return errors.New("exec service: unsupported platform")
}
