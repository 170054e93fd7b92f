// Package pidfile persists the process id of the running daemon instance.
//
// A pidfile is a claim of liveness, not proof: the recorded process may have
// died without cleaning up. Readers therefore treat missing or malformed
// content as "no claim" and leave liveness checks to the caller.
package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store reads and writes one pidfile path.
type Store struct {
	path string
}

// New returns a store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the pidfile location.
func (s *Store) Path() string {
	return s.path
}

// Write records pid as decimal text followed by a newline, replacing any
// previous content.
func (s *Store) Write(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("write pid file %s: invalid pid %d", s.path, pid)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pid file directory %s: %w", dir, err)
		}
	}
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write pid file %s: %w", s.path, err)
	}
	return nil
}

// Read returns the recorded pid. ok is false when the file is missing, empty,
// or does not hold a positive integer; err is reserved for other I/O failures.
func (s *Store) Read() (pid int, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read pid file %s: %w", s.path, err)
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil || pid <= 0 {
		return 0, false, nil
	}
	return pid, true, nil
}

// Delete removes the pidfile. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove pid file %s: %w", s.path, err)
	}
	return nil
}

// DeleteIfOwned removes the pidfile only while it still records pid, so an
// exiting daemon never removes the record of a successor started by restart.
func (s *Store) DeleteIfOwned(pid int) (bool, error) {
	current, ok, err := s.Read()
	if err != nil {
		return false, err
	}
	if !ok || current != pid {
		return false, nil
	}
	if err := s.Delete(); err != nil {
		return false, err
	}
	return true, nil
}
