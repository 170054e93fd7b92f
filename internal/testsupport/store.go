package testsupport

import (
	"context"
	"testing"

	"daemonkit/internal/config"
	"daemonkit/internal/journal"
)

// MustOpenJournal opens the configured journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(context.Background(), cfg.Journal.Path)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordEvent appends an event using the provided store.
func RecordEvent(t testing.TB, store *journal.Store, action journal.Action, outcome journal.Outcome, pid int) journal.Event {
	t.Helper()

	ev, err := store.Record(context.Background(), journal.Event{Action: action, Outcome: outcome, PID: pid})
	if err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return ev
}
