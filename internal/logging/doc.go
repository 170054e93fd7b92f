// Package logging assembles the structured slog loggers used by the daemonkit
// CLI and by detached daemons.
//
// It owns the console and JSON handlers, parses levels, fans output across
// stdout/stderr/files, and exposes attribute helpers and standard field names
// so lifecycle events carry the same keys wherever they are emitted. Detached
// daemons tag every record with an instance id so one run can be picked out of
// a shared log file. A no-op logger is provided for tests and for wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
