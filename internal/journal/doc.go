// Package journal keeps a durable history of daemon lifecycle events in a
// local SQLite database.
//
// Every control operation records what it attempted and how it ended, and
// the detached daemon records its own start and exit. The journal is an
// operator aid only: callers log journal failures and carry on, so the
// lifecycle outcome never depends on it.
package journal
