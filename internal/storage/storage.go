// Package storage defines the contracts the roster service needs from its
// two persistence backends, plus the error kinds they report.
//
// WHY INTERFACES?
// ───────────────
// The roster service should not know or care whether the roster lives in a
// text file or the activity log lives in SQLite. By depending only on these
// interfaces:
//
//   - Swapping a backend = implement the interface, change one line in the
//     CLI wiring. Zero service changes.
//
//   - Writing tests = pass a fake that satisfies the interface.
//     No real file or database needed for unit tests.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanand-mishra/student-roster/internal/types"
)

// RosterStore persists the whole roster at once.
type RosterStore interface {
	// Load returns every record in file order. The file is created empty
	// if it does not exist yet.
	//
	// On a malformed line Load stops reading and returns the records parsed
	// so far TOGETHER with a *ParseError. Callers are expected to keep the
	// partial result.
	Load(path string) ([]types.Student, error)

	// Save replaces the file contents with students. The error wraps one of
	// ErrPermissionDenied, ErrPathNotFound or ErrIO.
	Save(path string, students []types.Student) error
}

// LogStore is the append-only activity log.
type LogStore interface {
	// Append writes every entry whose (Action, StudentID, Timestamp) triple
	// is not stored yet and returns how many rows were inserted.
	// Replaying the same entries is a no-op.
	Append(ctx context.Context, entries []types.LogEntry) (int, error)

	// ReadAll returns every stored entry ordered by LogID.
	ReadAll(ctx context.Context) ([]types.LogEntry, error)

	Close() error
}

// Save failure kinds. Use errors.Is to tell them apart.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrPathNotFound     = errors.New("path not found")
	ErrIO               = errors.New("i/o error")
)

// ParseError reports the first malformed line of a roster file.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}
