package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
	"github.com/aanand-mishra/student-roster/internal/utils/report"
)

// Update handles key presses and window resizes. Every action runs to
// completion here before the next message is processed.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.confirmQuit {
			return m.handleConfirm(msg)
		}
		if m.confirmSave {
			return m.handleConfirmSave(msg), nil
		}
		if m.form != nil {
			return m.handleForm(msg), nil
		}
		if m.searching {
			return m.handleSearch(msg), nil
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "y" {
		return m, tea.Quit
	}
	m.confirmQuit = false
	m.message = ""
	return m, nil
}

// handleConfirmSave answers the prompt shown before overwriting a roster
// file that was only partly loaded.
func (m Model) handleConfirmSave(msg tea.KeyMsg) Model {
	m.confirmSave = false
	if msg.String() == "y" {
		m.save()
		return m
	}
	m.message = "Save cancelled."
	return m
}

func (m Model) handleForm(msg tea.KeyMsg) Model {
	switch msg.Type {
	case tea.KeyEsc:
		m.form = nil
		m.errLines = nil
		m.message = "Edit cancelled."
		return m
	case tea.KeyEnter:
		m.submitForm()
		return m
	}
	m.form.edit(msg)
	return m
}

// submitForm adds or updates the record. On failure the form stays open
// with every problem listed below it.
func (m *Model) submitForm() {
	var (
		student types.Student
		err     error
	)
	if m.form.editing == "" {
		student, err = m.roster.Add(m.form.form())
	} else {
		student, err = m.roster.Update(m.form.editing, m.form.form())
	}
	if err != nil {
		m.errLines = report.Errors(err)
		return
	}

	if m.form.editing == "" {
		m.message = fmt.Sprintf("Student %s added.", student.ID)
	} else {
		m.message = fmt.Sprintf("Student %s updated.", student.ID)
	}
	m.form = nil
	m.errLines = nil
	m.refresh()
}

func (m Model) handleSearch(msg tea.KeyMsg) Model {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyEsc:
		m.searching = false
		m.query = ""
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	}
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errLines = nil

	switch msg.String() {
	case "q":
		if m.roster.State() == roster.Modified {
			m.confirmQuit = true
			m.message = "Are you sure you want to close? All unsaved changes will be lost. [y/N]"
			return m, nil
		}
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case "/":
		m.searching = true
		m.message = ""

	case "r":
		// Show the whole roster again.
		m.query = ""
		m.message = ""
		m.refresh()

	case "a":
		m.form = newAddForm()
		m.message = ""

	case "e":
		student, ok := m.selected()
		if !ok {
			m.message = "Please select a student to edit."
			break
		}
		m.form = newEditForm(student)
		m.message = ""

	case "d":
		student, ok := m.selected()
		if !ok {
			m.message = "Please select a student to delete."
			break
		}
		removed := m.roster.Delete(student.ID)
		m.message = fmt.Sprintf("Deleted %d student(s) with ID %s.", removed, student.ID)
		m.refresh()

	case "s":
		if perr := m.roster.Truncation(); perr != nil {
			m.confirmSave = true
			m.message = fmt.Sprintf("%s was only read up to line %d. Saving drops that line and every line after it. Save anyway? [y/N]",
				perr.Path, perr.Line)
			break
		}
		m.save()

	case "u":
		if err := m.roster.Discard(); err != nil {
			m.errLines = report.Errors(err)
		}
		m.message = "Changes have been discarded."
		m.refresh()

	case "m":
		m.summarize()

	case "l":
		m.showLogs = !m.showLogs
		if m.showLogs {
			m.loadLogs()
		}
	}

	return m, nil
}

func (m *Model) save() {
	if err := m.roster.Save(context.Background()); err != nil {
		m.errLines = report.Errors(err)
		m.message = "Save failed, changes are still in memory."
		return
	}
	m.message = "Changes have been saved."
	if m.showLogs {
		m.loadLogs()
	}
}

func (m *Model) summarize() {
	sum, err := m.roster.Summarize()
	if errors.Is(err, roster.ErrEmptyRoster) {
		m.message = "No students on the roster, nothing to summarize."
		return
	}
	if err := report.WriteSummaryFile(m.summaryPath, sum); err != nil {
		m.errLines = report.Errors(err)
		return
	}
	m.message = fmt.Sprintf("Summary report written to %s. Students: %d, average age: %d.",
		m.summaryPath, sum.Count, report.RoundedAge(sum))
}

func (m *Model) loadLogs() {
	logs, err := m.roster.Logs(context.Background())
	if err != nil {
		m.logs = nil
		m.errLines = report.Errors(err)
		return
	}
	m.logs = logs
}
