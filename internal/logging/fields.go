package logging

const (
	// FieldComponent names the subsystem emitting a record.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable name for the event.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPID is the process id a record refers to.
	FieldPID = "pid"
	// FieldPIDFile is the pidfile path a record refers to.
	FieldPIDFile = "pidfile"
	// FieldInstanceID identifies one detached daemon run.
	FieldInstanceID = "instance_id"
	// FieldStage is the detach stage of the emitting process.
	FieldStage = "stage"
)
