// Package report renders roster results for people: tables, the summary
// report, batched error messages and JSON.
//
// Every command prints through these helpers rather than formatting on its
// own, so the CLI and the interactive session show the same thing.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// TimestampLayout is how log timestamps are displayed.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585B70"))
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes data as indented JSON followed by a newline.
//
// The "any" type (alias for interface{}) means data can be a struct, map,
// slice, or primitive.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ─────────────────────────────────────────────────────────────────────────────
// WriteSummary writes the two-line summary report:
//
//	Total Number of Students: 2
//	Average Age of Students: 25
//
// The average keeps single-precision digits, e.g. 22.333334.
// ─────────────────────────────────────────────────────────────────────────────
func WriteSummary(w io.Writer, sum roster.Summary) error {
	_, err := fmt.Fprintf(w, "Total Number of Students: %d\nAverage Age of Students: %s\n",
		sum.Count, strconv.FormatFloat(sum.AverageAge, 'f', -1, 32))
	return err
}

// WriteSummaryFile replaces the file at path with the summary report.
func WriteSummaryFile(path string, sum roster.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteSummaryFile: create: %w", err)
	}
	defer f.Close()

	if err := WriteSummary(f, sum); err != nil {
		return fmt.Errorf("WriteSummaryFile: write: %w", err)
	}
	return f.Close()
}

// RoundedAge is the average age as shown on the one-line summary label.
func RoundedAge(sum roster.Summary) int {
	return int(math.Round(sum.AverageAge))
}

// RosterTable renders students as a bordered table in roster order.
func RosterTable(students []types.Student) string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{
			s.ID, s.Name, s.Surname, strconv.Itoa(s.Age), s.PhoneNumber, s.Course,
		})
	}
	return render([]string{"ID", "Name", "Surname", "Age", "Phone", "Course"}, rows)
}

// LogTable renders the log store contents, one row per entry.
func LogTable(entries []types.LogEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Action,
			e.StudentID,
			e.Timestamp.Local().Format(TimestampLayout),
		})
	}
	return render([]string{"LogID", "Action", "StudentID", "Timestamp"}, rows)
}

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Errors turns a core error into the lines shown to the user in one batch.
//
// Validation failures list every message; a duplicate ID lists the records
// that already use it. Failed roster saves get a hint matching their cause.
// Anything else is a single line.
// ─────────────────────────────────────────────────────────────────────────────
func Errors(err error) []string {
	var (
		verr *roster.ValidationError
		derr *roster.DuplicateKeyError
	)
	switch {
	case errors.As(err, &verr):
		lines := append([]string(nil), verr.Result.Messages...)
		return append(lines, duplicateLines(verr.Result.Duplicates)...)
	case errors.As(err, &derr):
		lines := []string{"The Student ID already exists. Please enter a unique ID."}
		return append(lines, duplicateLines(derr.Matches)...)
	case errors.Is(err, storage.ErrPermissionDenied):
		return []string{"Access denied, check permissions.", err.Error()}
	case errors.Is(err, storage.ErrPathNotFound):
		return []string{"Directory does not exist. Please check the file path.", err.Error()}
	case errors.Is(err, storage.ErrIO):
		return []string{"An I/O error occurred while writing the file.", err.Error()}
	default:
		return []string{err.Error()}
	}
}

// duplicateLines describes each conflicting record on its own line.
func duplicateLines(students []types.Student) []string {
	lines := make([]string, 0, len(students))
	for _, s := range students {
		lines = append(lines, fmt.Sprintf("  ID: %s, Name: %s, Age: %d, Course: %s",
			s.ID, s.Name, s.Age, s.Course))
	}
	return lines
}
