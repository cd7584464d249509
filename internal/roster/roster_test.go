package roster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// memFiles is an in-memory storage.RosterStore.
type memFiles struct {
	data    map[string][]types.Student
	loadErr error
	saveErr error
}

func (m *memFiles) Load(path string) ([]types.Student, error) {
	return append([]types.Student(nil), m.data[path]...), m.loadErr
}

func (m *memFiles) Save(path string, students []types.Student) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[path] = append([]types.Student(nil), students...)
	return nil
}

// memLogs is an in-memory storage.LogStore with the same dedup rule as the
// SQLite one.
type memLogs struct {
	rows      []types.LogEntry
	appendErr error
}

func (m *memLogs) Append(_ context.Context, entries []types.LogEntry) (int, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	n := 0
	for _, e := range entries {
		dup := false
		for _, r := range m.rows {
			if r.Action == e.Action && r.StudentID == e.StudentID && r.Timestamp.Equal(e.Timestamp) {
				dup = true
				break
			}
		}
		if !dup {
			e.ID = int64(len(m.rows) + 1)
			m.rows = append(m.rows, e)
			n++
		}
	}
	return n, nil
}

func (m *memLogs) ReadAll(context.Context) ([]types.LogEntry, error) {
	return append([]types.LogEntry(nil), m.rows...), nil
}

func (m *memLogs) Close() error { return nil }

const rosterPath = "Student.txt"

var fixedNow = time.Date(2024, 5, 1, 10, 30, 15, 500, time.Local)

func newTestService(t *testing.T, initial ...types.Student) (*Service, *memFiles, *memLogs) {
	t.Helper()
	files := &memFiles{data: map[string][]types.Student{rosterPath: initial}}
	logs := &memLogs{}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(rosterPath, files, logs, quiet)
	s.now = func() time.Time { return fixedNow }
	require.NoError(t, s.Load())
	return s, files, logs
}

func student(id string, age int) types.Student {
	return types.Student{ID: id, Name: "John", Surname: "Smith", Age: age, PhoneNumber: "(012) 345-6789", Course: "Maths"}
}

func validForm(id string) types.Form {
	return types.Form{ID: id, Name: "john", Surname: "SMITH", Age: "21", PhoneNumber: "(012) 345-6789", Course: "Maths"}
}

func TestFindByID(t *testing.T) {
	s, _, _ := newTestService(t, student("S10", 20), student("A1", 21), student("S2", 22))

	assert.Equal(t, s.Students(), s.FindByID(""))
	assert.Equal(t, []types.Student{student("S10", 20), student("S2", 22)}, s.FindByID("S"))
	assert.Equal(t, []types.Student{student("S10", 20), student("A1", 21)}, s.FindByID("1"))
	assert.Empty(t, s.FindByID("s"), "matching is case-sensitive")
}

func TestSummarize(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Summarize()
	assert.ErrorIs(t, err, ErrEmptyRoster)

	s, _, _ = newTestService(t, student("S1", 20), student("S2", 30))
	sum, err := s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, Summary{Count: 2, AverageAge: 25.0}, sum)
}

func TestAddNormalizesAndLogs(t *testing.T) {
	s, _, _ := newTestService(t)

	added, err := s.Add(validForm("S1"))
	require.NoError(t, err)
	assert.Equal(t, "John", added.Name)
	assert.Equal(t, "Smith", added.Surname)
	assert.Equal(t, 21, added.Age)

	assert.Equal(t, []types.Student{added}, s.Students())
	assert.Equal(t, Modified, s.State())
	assert.Equal(t, []types.LogEntry{{
		Action:    types.ActionAdded,
		StudentID: "S1",
		Timestamp: fixedNow.Truncate(time.Second),
	}}, s.Pending())
}

func TestAddMissingFieldLeavesRosterUnchanged(t *testing.T) {
	existing := student("S1", 20)
	s, _, _ := newTestService(t, existing)

	form := validForm("S2")
	form.Course = ""

	_, err := s.Add(form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, verr.Result.OK)
	assert.Equal(t, []string{"Course cannot be empty."}, verr.Result.Messages)
	assert.Equal(t, []types.Student{existing}, s.Students())
	assert.Empty(t, s.Pending())
	assert.Equal(t, Loaded, s.State())
}

func TestAddDuplicateID(t *testing.T) {
	existing := student("S1", 20)
	s, _, _ := newTestService(t, existing)

	_, err := s.Add(validForm("S1"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Result.Messages, "Duplicate ID found. Please use a unique ID.")
	assert.Equal(t, []types.Student{existing}, verr.Result.Duplicates)
	assert.Equal(t, "John", verr.Result.Student.Name, "other fields are still normalized")
	assert.Equal(t, []types.Student{existing}, s.Students())
}

func TestUpdateInPlace(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20), student("S2", 30))

	form := validForm("S3")
	form.Age = "40"
	updated, err := s.Update("S1", form)
	require.NoError(t, err)

	assert.Equal(t, "S3", updated.ID)
	assert.Equal(t, []types.Student{updated, student("S2", 30)}, s.Students())
	require.Len(t, s.Pending(), 1)
	assert.Equal(t, types.ActionUpdated, s.Pending()[0].Action)
	assert.Equal(t, "S3", s.Pending()[0].StudentID)
}

func TestUpdateKeepingSameID(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20))

	form := validForm("S1")
	form.Course = "Physics"
	updated, err := s.Update("S1", form)
	require.NoError(t, err)
	assert.Equal(t, "Physics", updated.Course)
}

func TestUpdateToExistingIDFails(t *testing.T) {
	original := student("S1", 20)
	other := student("S2", 30)
	s, _, _ := newTestService(t, original, other)

	_, err := s.Update("S1", validForm("S2"))

	var derr *DuplicateKeyError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "S2", derr.ID)
	assert.Equal(t, []types.Student{other}, derr.Matches)
	assert.Equal(t, []types.Student{original, other}, s.Students())
	assert.Empty(t, s.Pending())
}

func TestUpdateValidationFailure(t *testing.T) {
	original := student("S1", 20)
	s, _, _ := newTestService(t, original)

	form := validForm("S1")
	form.Age = "-3"
	_, err := s.Update("S1", form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Age must be a positive integer."}, verr.Result.Messages)
	assert.Equal(t, []types.Student{original}, s.Students())
}

func TestUpdateUnknownID(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20))

	_, err := s.Update("S9", validForm("S9"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesAllMatches(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20), student("S2", 30), student("S1", 40))

	assert.Equal(t, 2, s.Delete("S1"))
	assert.Equal(t, []types.Student{student("S2", 30)}, s.Students())
	require.Len(t, s.Pending(), 1)
	assert.Equal(t, types.ActionDeleted, s.Pending()[0].Action)
}

func TestDeleteNoMatch(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20))

	assert.Zero(t, s.Delete("S9"))
	assert.Zero(t, s.Delete(""))
	assert.Len(t, s.Students(), 1)
	assert.Empty(t, s.Pending())
	assert.Equal(t, Loaded, s.State())
}

func TestSaveFlushesLog(t *testing.T) {
	s, files, logs := newTestService(t)
	ctx := context.Background()

	_, err := s.Add(validForm("S1"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx))

	assert.Equal(t, Saved, s.State())
	assert.Equal(t, s.Students(), files.data[rosterPath])
	assert.Len(t, logs.rows, 1)
	assert.Empty(t, s.Pending())

	// Saving again with nothing pending writes nothing new.
	require.NoError(t, s.Save(ctx))
	assert.Len(t, logs.rows, 1)
}

func TestSaveFileFailureKeepsModified(t *testing.T) {
	s, files, logs := newTestService(t)
	files.saveErr = storage.ErrPermissionDenied

	_, err := s.Add(validForm("S1"))
	require.NoError(t, err)

	err = s.Save(context.Background())
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)
	assert.Equal(t, Modified, s.State())
	assert.Len(t, s.Pending(), 1)
	assert.Empty(t, logs.rows)
}

func TestSaveLogFailureIsNotFatal(t *testing.T) {
	s, _, logs := newTestService(t)
	logs.appendErr = errors.New("database is locked")

	_, err := s.Add(validForm("S1"))
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, Saved, s.State())
	assert.Len(t, s.Pending(), 1, "entries stay pending for the next save")

	logs.appendErr = nil
	require.NoError(t, s.Save(context.Background()))
	assert.Len(t, logs.rows, 1)
	assert.Empty(t, s.Pending())
}

func TestSaveWithoutLogStore(t *testing.T) {
	files := &memFiles{data: map[string][]types.Student{}}
	s := New(rosterPath, files, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Load())

	_, err := s.Add(validForm("S1"))
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background()))
	assert.Len(t, files.data[rosterPath], 1)

	_, err = s.Logs(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestDiscardReloads(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20))

	_, err := s.Add(validForm("S2"))
	require.NoError(t, err)
	s.Delete("S1")

	require.NoError(t, s.Discard())
	assert.Equal(t, []types.Student{student("S1", 20)}, s.Students())
	assert.Empty(t, s.Pending())
	assert.Equal(t, Loaded, s.State())
}

func TestLoadKeepsPartialRoster(t *testing.T) {
	files := &memFiles{
		data:    map[string][]types.Student{rosterPath: {student("S1", 20)}},
		loadErr: &storage.ParseError{Path: rosterPath, Line: 2, Reason: "bad age"},
	}
	s := New(rosterPath, files, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := s.Load()
	var perr *storage.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []types.Student{student("S1", 20)}, s.Students())
	assert.True(t, s.Truncated())
	assert.Equal(t, 2, s.Truncation().Line)

	// A deliberate save makes the file match the roster again.
	require.NoError(t, s.Save(context.Background()))
	assert.False(t, s.Truncated())
	assert.Nil(t, s.Truncation())
}

func TestDiscardRecomputesTruncation(t *testing.T) {
	files := &memFiles{
		data:    map[string][]types.Student{rosterPath: {student("S1", 20)}},
		loadErr: &storage.ParseError{Path: rosterPath, Line: 2, Reason: "bad age"},
	}
	s := New(rosterPath, files, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, s.Load())
	require.True(t, s.Truncated())

	files.loadErr = nil
	require.NoError(t, s.Discard())
	assert.False(t, s.Truncated())
}

func TestStudentsIsASnapshot(t *testing.T) {
	s, _, _ := newTestService(t, student("S1", 20))

	snapshot := s.Students()
	snapshot[0].Name = "Changed"
	assert.Equal(t, "John", s.Students()[0].Name)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "saved", Saved.String())
}
