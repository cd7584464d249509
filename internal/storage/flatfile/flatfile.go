// Package flatfile stores the roster as delimited text, one student per line:
//
//	id,name,surname,age,phoneNumber,course
//
// There is no header and no escaping. A field containing "," or a newline
// cannot be represented; such rosters are unsupported rather than escaped.
package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

const (
	delimiter = ","
	numFields = 6
)

// Store implements storage.RosterStore on top of the local filesystem.
type Store struct{}

// New returns a ready-to-use *Store.
func New() *Store {
	return &Store{}
}

// Load reads the roster at path, creating an empty file when it is missing.
//
// Parsing stops at the first malformed line; the students read before it
// are returned along with a *storage.ParseError.
func (s *Store) Load(path string) ([]types.Student, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, classify("Load", path, err)
	}
	defer f.Close()

	students := make([]types.Student, 0)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		student, reason := parseLine(line)
		if reason != "" {
			return students, &storage.ParseError{Path: path, Line: lineNo, Reason: reason}
		}
		students = append(students, student)
	}

	if err := scanner.Err(); err != nil {
		return students, classify("Load", path, err)
	}

	return students, nil
}

func parseLine(line string) (types.Student, string) {
	items := strings.Split(line, delimiter)
	if len(items) != numFields {
		return types.Student{}, fmt.Sprintf("expected %d fields, got %d", numFields, len(items))
	}

	age, err := strconv.Atoi(items[3])
	if err != nil {
		return types.Student{}, fmt.Sprintf("age %q is not a number", items[3])
	}

	return types.Student{
		ID:          items[0],
		Name:        items[1],
		Surname:     items[2],
		Age:         age,
		PhoneNumber: items[4],
		Course:      items[5],
	}, ""
}

// formatLine is the inverse of parseLine.
func formatLine(s types.Student) string {
	return strings.Join([]string{
		s.ID,
		s.Name,
		s.Surname,
		strconv.Itoa(s.Age),
		s.PhoneNumber,
		s.Course,
	}, delimiter)
}

// ─────────────────────────────────────────────────────────────────────────────
// Save replaces the file at path with the given students.
//
// The lines are written to a temporary file in the same directory which is
// then renamed over the target, so a reader never sees half a roster. A
// failed save leaves the previous file untouched. An existing file keeps
// its permissions.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) Save(path string, students []types.Student) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return classify("Save", path, err)
	}
	tmpName := tmp.Name()
	// Removing after a successful rename fails harmlessly.
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, student := range students {
		if _, err := w.WriteString(formatLine(student) + "\n"); err != nil {
			tmp.Close()
			return classify("Save", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return classify("Save", path, err)
	}
	if err := tmp.Chmod(fileMode(path)); err != nil {
		tmp.Close()
		return classify("Save", path, err)
	}
	if err := tmp.Close(); err != nil {
		return classify("Save", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return classify("Save", path, err)
	}

	return nil
}

// fileMode is the permission set a save leaves on path: the current one
// when the file exists, 0644 for a new file.
func fileMode(path string) fs.FileMode {
	if fi, err := os.Stat(path); err == nil {
		return fi.Mode().Perm()
	}
	return 0o644
}

// classify maps an OS error onto one of the storage failure kinds while
// keeping the original error in the chain.
func classify(op, path string, err error) error {
	kind := storage.ErrIO
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = storage.ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		kind = storage.ErrPathNotFound
	}
	return fmt.Errorf("flatfile.%s: %s: %w: %w", op, path, kind, err)
}
