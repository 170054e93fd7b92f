package daemon

import (
	"errors"
	"fmt"

	"daemonkit/internal/procinfo"
)

// Phase is the controller's position in the lifecycle.
type Phase int32

const (
	PhaseNotStarted Phase = iota
	PhaseDetaching
	PhaseRunning
	PhaseStopping
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseDetaching:
		return "detaching"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// State is the externally observable process state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Status is a read-only snapshot of the pidfile claim.
type Status struct {
	State   State
	PIDFile string
	PID     int
	// Stale is set when the pidfile names a process that no longer exists.
	Stale   bool
	Process procinfo.Info
}

// ErrAlreadyRunning is returned by Start while a pidfile claim exists.
var ErrAlreadyRunning = errors.New("daemon already running")

// AlreadyRunningError carries the claim that blocked Start.
type AlreadyRunningError struct {
	PID   int
	Path  string
	Alive bool
}

func (e *AlreadyRunningError) Error() string {
	if e.Alive {
		return fmt.Sprintf("pidfile %s already exists: daemon already running (pid %d)", e.Path, e.PID)
	}
	return fmt.Sprintf("pidfile %s already exists: pid %d does not appear to be running; run stop to clear it", e.Path, e.PID)
}

// Is reports ErrAlreadyRunning as a match.
func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}
