// Package ledger persists the lifecycle of pty children to SQLite: when a
// child was spawned, every status transition observed, and how it ended.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zhiburt/ptyprocess"
)

// Event is one recorded lifecycle entry for a child pid.
type Event struct {
	ID        string
	Pid       int
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// Ledger records spawn and status events in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path, enables WAL mode
// for concurrent readers and runs the schema migration. Use ":memory:"
// for an ephemeral ledger.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Ledger{db: db}, nil
}

// runMigrations executes the database schema migrations.
func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS process_events (
		id TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_process_events_pid ON process_events(pid);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// RecordSpawn records that a command was started under pid.
func (l *Ledger) RecordSpawn(ctx context.Context, pid int, command string) error {
	return l.insert(ctx, pid, "spawned", command)
}

// RecordStatus records an observed child status transition.
func (l *Ledger) RecordStatus(ctx context.Context, pid int, st ptyprocess.ChildStatus) error {
	return l.insert(ctx, pid, st.Kind.String(), st.String())
}

func (l *Ledger) insert(ctx context.Context, pid int, kind, detail string) error {
	query := `
		INSERT INTO process_events (id, pid, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, uuid.NewString(), pid, kind, detail, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	return nil
}

// Events returns all recorded events for a pid, oldest first.
func (l *Ledger) Events(ctx context.Context, pid int) ([]Event, error) {
	query := `
		SELECT id, pid, kind, detail, created_at
		FROM process_events
		WHERE pid = ?
		ORDER BY created_at, id
	`
	rows, err := l.db.QueryContext(ctx, query, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Pid, &e.Kind, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Detail = detail.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// Watch polls a process and records every status transition until a
// terminal status is observed or the context is cancelled. It blocks and
// is intended to run in its own goroutine.
func (l *Ledger) Watch(ctx context.Context, proc *ptyprocess.PtyProcess, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	last := ptyprocess.ChildStatus{Kind: ptyprocess.StatusRunning}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		st, err := proc.Status()
		if err != nil {
			return err
		}
		if st != last {
			if err := l.RecordStatus(ctx, proc.Pid(), st); err != nil {
				return err
			}
			last = st
		}
		if st.Terminal() {
			return nil
		}
	}
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
