package journal

import "time"

// Action names the lifecycle operation that produced an event.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionExit    Action = "exit"
)

// Outcome describes how the operation ended.
type Outcome string

const (
	OutcomeStarted        Outcome = "started"
	OutcomeAlreadyRunning Outcome = "already_running"
	OutcomeNotRunning     Outcome = "not_running"
	OutcomeTerminated     Outcome = "terminated"
	OutcomeFailed         Outcome = "failed"
	OutcomeExited         Outcome = "exited"
)

// Event is one journal row.
type Event struct {
	ID         int64
	CreatedAt  time.Time
	Action     Action
	Outcome    Outcome
	PID        int
	InstanceID string
	Detail     string
}
