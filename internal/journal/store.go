package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// Store persists lifecycle events.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the journal at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends ev and returns it with ID and CreatedAt filled in.
func (s *Store) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.Action == "" || ev.Outcome == "" {
		return ev, errors.New("journal event requires action and outcome")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	ev.CreatedAt = ev.CreatedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (created_at, action, outcome, pid, instance_id, detail)
         VALUES (?, ?, ?, ?, ?, ?)`,
		ev.CreatedAt.Format(time.RFC3339Nano),
		string(ev.Action),
		string(ev.Outcome),
		nullablePID(ev.PID),
		nullableString(ev.InstanceID),
		nullableString(ev.Detail),
	)
	if err != nil {
		return ev, fmt.Errorf("insert lifecycle event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ev, fmt.Errorf("last insert id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

// List returns up to limit events, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, action, outcome, pid, instance_id, detail
         FROM lifecycle_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query lifecycle events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev         Event
			createdRaw string
			action     string
			outcome    string
			pid        sql.NullInt64
			instanceID sql.NullString
			detail     sql.NullString
		)
		if err := rows.Scan(&ev.ID, &createdRaw, &action, &outcome, &pid, &instanceID, &detail); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdRaw); parseErr == nil {
			ev.CreatedAt = ts
		}
		ev.Action = Action(action)
		ev.Outcome = Outcome(outcome)
		ev.PID = int(pid.Int64)
		ev.InstanceID = instanceID.String
		ev.Detail = detail.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lifecycle events: %w", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullablePID(pid int) any {
	if pid <= 0 {
		return nil
	}
	return pid
}
