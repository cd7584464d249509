// Package sqlite provides a SQLite-backed implementation of the
// storage.LogStore interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// The activity log is a single small table that lives next to the roster
// file. SQLite keeps it in one file on disk with no server process and no
// installation beyond the driver.
//
// The blank import below registers the sqlite3 driver with database/sql.
// The driver's init() function does this automatically when the package
// is loaded; nothing in it is called directly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/aanand-mishra/student-roster/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// timestampLayout is how Timestamp values are bound. It is the same shape
// SQLite uses for CURRENT_TIMESTAMP, always in UTC, second precision, so
// the duplicate check compares identical text.
const timestampLayout = "2006-01-02 15:04:05"

const schema = `
	CREATE TABLE IF NOT EXISTS Logs (
		LogID     INTEGER PRIMARY KEY AUTOINCREMENT,
		Action    TEXT    NOT NULL,
		StudentID TEXT    NOT NULL,
		Timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)
`

// Store is the concrete implementation of storage.LogStore.
type Store struct {
	db      *sql.DB
	log     *slog.Logger
	created bool
}

// Open opens the log database at path. When the file does not exist yet it
// is created together with the Logs table and Created reports true, so the
// caller can tell the user where the new database lives.
func Open(path string, log *slog.Logger) (*Store, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	// sql.Open does NOT open a real connection yet. It only validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	s, err := New(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.created = created

	return s, nil
}

// New wraps an already opened database and makes sure the Logs table
// exists. CREATE TABLE IF NOT EXISTS runs on every startup.
func New(db *sql.DB, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Created reports whether Open had to create the database file.
func (s *Store) Created() bool {
	return s.created
}

// ─────────────────────────────────────────────────────────────────────────────
// Append writes the entries that are not stored yet and returns how many
// rows it inserted.
//
// Each entry is checked against the (Action, StudentID, Timestamp) triple
// before the INSERT, so flushing the same in-memory log twice leaves one row
// per entry. All work happens on a single connection taken for the call.
//
// Failures are logged here and returned; the count says how far it got.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) Append(ctx context.Context, entries []types.LogEntry) (int, error) {
	inserted, err := s.appendAll(ctx, entries)
	if err != nil {
		s.log.Error("failed to write log entries",
			slog.Int("inserted", inserted),
			slog.Int("total", len(entries)),
			slog.String("error", err.Error()))
	}
	return inserted, err
}

func (s *Store) appendAll(ctx context.Context, entries []types.LogEntry) (int, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("Append: connect: %w", err)
	}
	defer conn.Close()

	check, err := conn.PrepareContext(ctx,
		"SELECT COUNT(*) FROM Logs WHERE Action = ? AND StudentID = ? AND Timestamp = ?",
	)
	if err != nil {
		return 0, fmt.Errorf("Append: prepare check: %w", err)
	}
	defer check.Close()

	insert, err := conn.PrepareContext(ctx,
		"INSERT INTO Logs (Action, StudentID, Timestamp) VALUES (?, ?, ?)",
	)
	if err != nil {
		return 0, fmt.Errorf("Append: prepare insert: %w", err)
	}
	defer insert.Close()

	inserted := 0
	for _, entry := range entries {
		ts := entry.Timestamp.UTC().Format(timestampLayout)

		var count int64
		if err := check.QueryRowContext(ctx, entry.Action, entry.StudentID, ts).Scan(&count); err != nil {
			return inserted, fmt.Errorf("Append: check %q/%q: %w", entry.Action, entry.StudentID, err)
		}
		if count > 0 {
			s.log.Debug("duplicate log entry, skipping insert",
				slog.String("action", entry.Action),
				slog.String("student_id", entry.StudentID),
				slog.String("timestamp", ts))
			continue
		}

		if _, err := insert.ExecContext(ctx, entry.Action, entry.StudentID, ts); err != nil {
			return inserted, fmt.Errorf("Append: insert %q/%q: %w", entry.Action, entry.StudentID, err)
		}
		inserted++
	}

	return inserted, nil
}

// ReadAll returns every row of the Logs table ordered by LogID.
func (s *Store) ReadAll(ctx context.Context) ([]types.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT LogID, Action, StudentID, Timestamp FROM Logs ORDER BY LogID ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: query: %w", err)
	}
	defer rows.Close()

	entries := make([]types.LogEntry, 0)
	for rows.Next() {
		var (
			entry types.LogEntry
			ts    sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.StudentID, &ts); err != nil {
			return nil, fmt.Errorf("ReadAll: scan row: %w", err)
		}
		if ts.Valid {
			parsed, err := parseTimestamp(ts.String)
			if err != nil {
				return nil, fmt.Errorf("ReadAll: log %d: %w", entry.ID, err)
			}
			entry.Timestamp = parsed
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadAll: rows iteration: %w", err)
	}

	return entries, nil
}

// parseTimestamp accepts the text forms a DATETIME column comes back in:
// our own layout, CURRENT_TIMESTAMP defaults, and RFC 3339 when the driver
// already turned the value into a time.Time.
func parseTimestamp(v string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		timestampLayout,
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", v)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
