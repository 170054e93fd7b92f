// Package config loads, normalizes, and validates daemonkit configuration.
//
// It supplies defaults rooted in the XDG state directory, expands tilde
// paths, reads TOML files, and honours the DAEMONKIT_PIDFILE environment
// fallback. The Config type carries every knob the lifecycle commands and the
// detached daemon need, so both sides of a start/stop pair agree on the same
// pidfile and redirection targets.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors.
package config
