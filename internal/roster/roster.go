// Package roster holds the in-memory student roster for one session and
// everything that reads or changes it: search, summary, validation, the
// add/update/delete mutations and the pending activity log.
//
// A Service is built explicitly by its owner and lives for the session.
// It is not safe for concurrent use; every call is expected to run to
// completion before the next user action.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

var (
	// ErrEmptyRoster is returned by Summarize when there is nothing to
	// average.
	ErrEmptyRoster = errors.New("roster is empty")

	// ErrNotFound is returned by Update when no record has the given ID.
	ErrNotFound = errors.New("student not found")

	// ErrStoreUnavailable is returned by Logs when the session runs without
	// a log store.
	ErrStoreUnavailable = errors.New("log store unavailable")

	// ErrTruncated marks a refusal to overwrite a roster file that was only
	// partly loaded.
	ErrTruncated = errors.New("roster file was only partly loaded")
)

// ValidationError carries a failed Result back from Add and Update.
type ValidationError struct {
	Result Result
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Result.Messages, "\n")
}

// DuplicateKeyError is returned by Update when the new ID already belongs
// to another record. Matches holds the conflicting records.
type DuplicateKeyError struct {
	ID      string
	Matches []types.Student
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("student id %q already exists", e.ID)
}

// State is where the session stands relative to what is on disk.
type State int

const (
	Loaded State = iota
	Modified
	Saved
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Modified:
		return "modified"
	case Saved:
		return "saved"
	default:
		return "unknown"
	}
}

// Summary is the roster size and mean age.
type Summary struct {
	Count      int
	AverageAge float64
}

// Service owns the roster and the activity entries not yet written to the
// log store.
type Service struct {
	path  string
	files storage.RosterStore
	logs  storage.LogStore
	log   *slog.Logger
	now   func() time.Time

	students []types.Student
	pending  []types.LogEntry
	state    State

	// truncated is the parse error of the last Load, cleared once a save
	// has made the file match the roster again.
	truncated *storage.ParseError
}

// New returns an empty session bound to the roster file at path. logs may
// be nil; the session then keeps working without persisting activity.
// Call Load to read the file.
func New(path string, files storage.RosterStore, logs storage.LogStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		path:     path,
		files:    files,
		logs:     logs,
		log:      log,
		now:      time.Now,
		students: make([]types.Student, 0),
	}
}

// Load replaces the roster with the contents of the file.
//
// A malformed line does not lose the lines before it: the partial roster is
// kept and the *storage.ParseError is returned so the caller can tell the
// user.
func (s *Service) Load() error {
	students, err := s.files.Load(s.path)
	if students == nil {
		students = make([]types.Student, 0)
	}
	s.students = students
	s.state = Loaded
	s.truncated = nil

	if err != nil {
		var perr *storage.ParseError
		if errors.As(err, &perr) {
			s.truncated = perr
			s.log.Warn("roster file truncated at malformed line",
				slog.String("path", perr.Path),
				slog.Int("line", perr.Line),
				slog.String("reason", perr.Reason),
				slog.Int("loaded", len(students)))
		} else {
			s.log.Error("failed to load roster",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("roster.Load: %w", err)
	}

	s.log.Debug("roster loaded", slog.String("path", s.path), slog.Int("students", len(students)))
	return nil
}

// Discard throws away every unsaved change, including activity entries
// for those changes, and reloads the file.
func (s *Service) Discard() error {
	s.pending = nil
	return s.Load()
}

// Truncated reports whether the last Load stopped at a malformed line.
// Saving such a roster drops every line from that point on.
func (s *Service) Truncated() bool {
	return s.truncated != nil
}

// Truncation returns the parse error of the last Load, or nil.
func (s *Service) Truncation() *storage.ParseError {
	return s.truncated
}

// Students returns a snapshot of the roster in display order.
func (s *Service) Students() []types.Student {
	return slices.Clone(s.students)
}

// State reports whether the roster has unsaved changes.
func (s *Service) State() State {
	return s.state
}

// Pending returns the activity entries not yet written to the log store.
func (s *Service) Pending() []types.LogEntry {
	return slices.Clone(s.pending)
}

// FindByID returns every student whose ID contains fragment. Matching is
// case-sensitive; an empty fragment returns the whole roster.
func (s *Service) FindByID(fragment string) []types.Student {
	found := make([]types.Student, 0)
	for _, student := range s.students {
		if strings.Contains(student.ID, fragment) {
			found = append(found, student)
		}
	}
	return found
}

// Summarize returns the number of students and their mean age.
func (s *Service) Summarize() (Summary, error) {
	if len(s.students) == 0 {
		return Summary{}, ErrEmptyRoster
	}

	total := 0
	for _, student := range s.students {
		total += student.Age
	}

	return Summary{
		Count:      len(s.students),
		AverageAge: float64(total) / float64(len(s.students)),
	}, nil
}

// Validate checks form against the current roster.
func (s *Service) Validate(form types.Form) Result {
	return Validate(form, s.students)
}

// Add validates form and appends the normalized student. On failure the
// roster is untouched and the error is a *ValidationError.
func (s *Service) Add(form types.Form) (types.Student, error) {
	res := s.Validate(form)
	if !res.OK {
		return types.Student{}, &ValidationError{Result: res}
	}

	s.students = append(s.students, res.Student)
	s.record(types.ActionAdded, res.Student.ID)

	s.log.Info("student added", slog.String("id", res.Student.ID))
	return res.Student, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Update overwrites the record currently known as currentID.
//
// Changing the ID to one another record already uses fails with a
// *DuplicateKeyError before anything else is checked. The remaining fields
// go through the usual validation, minus the duplicate rule: keeping the
// same ID is always allowed.
//
// When several records share currentID, the first one is updated.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Service) Update(currentID string, form types.Form) (types.Student, error) {
	idx := slices.IndexFunc(s.students, func(st types.Student) bool {
		return st.ID == currentID
	})
	if idx < 0 {
		return types.Student{}, fmt.Errorf("roster.Update: %q: %w", currentID, ErrNotFound)
	}

	if form.ID != currentID {
		if matches := matchID(s.students, form.ID); len(matches) > 0 {
			return types.Student{}, &DuplicateKeyError{ID: form.ID, Matches: matches}
		}
	}

	res := Validate(form, nil)
	if !res.OK {
		return types.Student{}, &ValidationError{Result: res}
	}

	s.students[idx] = res.Student
	s.record(types.ActionUpdated, res.Student.ID)

	s.log.Info("student updated",
		slog.String("from", currentID),
		slog.String("id", res.Student.ID))
	return res.Student, nil
}

// Delete removes every record with the given ID and returns how many went.
// Nothing matching is not an error.
func (s *Service) Delete(id string) int {
	before := len(s.students)
	s.students = slices.DeleteFunc(s.students, func(st types.Student) bool {
		return st.ID == id
	})
	removed := before - len(s.students)

	if removed > 0 {
		s.record(types.ActionDeleted, id)
		s.log.Info("student deleted", slog.String("id", id), slog.Int("removed", removed))
	}
	return removed
}

// ─────────────────────────────────────────────────────────────────────────────
// Save writes the roster file, then flushes pending activity to the log
// store.
//
// A failed file write is returned and the session stays Modified, so the
// user can fix the cause and save again. The log flush is best effort: a
// missing or failing log store is logged and never fails Save. Entries that
// did not make it stay pending and are replayed on the next save; the store
// skips the ones it already has.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Service) Save(ctx context.Context) error {
	if err := s.files.Save(s.path, s.students); err != nil {
		s.log.Error("failed to save roster",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return fmt.Errorf("roster.Save: %w", err)
	}
	s.state = Saved
	s.truncated = nil

	s.flush(ctx)
	return nil
}

func (s *Service) flush(ctx context.Context) {
	if len(s.pending) == 0 {
		return
	}
	if s.logs == nil {
		s.log.Warn("log store unavailable, activity not persisted",
			slog.Int("pending", len(s.pending)))
		return
	}

	inserted, err := s.logs.Append(ctx, s.pending)
	if err != nil {
		s.log.Warn("activity log not fully persisted, will retry on next save",
			slog.Int("inserted", inserted),
			slog.Int("pending", len(s.pending)),
			slog.String("error", err.Error()))
		return
	}

	s.log.Info("activity log written", slog.Int("inserted", inserted))
	s.pending = nil
}

// Logs reads back every entry in the log store.
func (s *Service) Logs(ctx context.Context) ([]types.LogEntry, error) {
	if s.logs == nil {
		return nil, ErrStoreUnavailable
	}
	return s.logs.ReadAll(ctx)
}

// record queues an activity entry and marks the roster modified.
func (s *Service) record(action, studentID string) {
	s.pending = append(s.pending, types.LogEntry{
		Action:    action,
		StudentID: studentID,
		Timestamp: s.now().Truncate(time.Second),
	})
	s.state = Modified
}

func matchID(students []types.Student, id string) []types.Student {
	var matches []types.Student
	for _, st := range students {
		if st.ID == id {
			matches = append(matches, st)
		}
	}
	return matches
}
