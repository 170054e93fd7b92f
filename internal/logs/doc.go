// Package logs reads the daemon log for `daemonkit logs`.
//
// Last returns the final lines of a file with bounded memory. Follow polls
// from an offset and keeps up when daemonkit.log is repointed at a new
// run's file or truncated.
package logs
