// Package tui is the interactive roster session: a scrollable list with ID
// search, an add/edit form, delete, save, discard, summary and a log panel.
// The session keeps unsaved edits in memory until the user saves, and asks
// before quitting with changes pending or overwriting a partly loaded file.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// Model represents the TUI application state
type Model struct {
	roster      *roster.Service
	summaryPath string

	// visible is the roster filtered by query, in roster order.
	visible []types.Student
	cursor  int

	searching bool
	query     string

	confirmQuit bool
	confirmSave bool

	// form is the open add/edit form, nil while browsing.
	form *formState

	showLogs bool
	logs     []types.LogEntry

	message  string
	errLines []string

	width  int
	height int
}

// NewModel creates a model over an already loaded roster session.
func NewModel(svc *roster.Service, summaryPath string) Model {
	m := Model{
		roster:      svc,
		summaryPath: summaryPath,
	}
	m.refresh()
	return m
}

// Init has nothing to fetch: the roster is loaded before the program starts.
func (m Model) Init() tea.Cmd {
	return nil
}

// Run starts the session full-screen and blocks until the user quits.
func Run(svc *roster.Service, summaryPath string) error {
	p := tea.NewProgram(NewModel(svc, summaryPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// refresh recomputes the visible rows and keeps the cursor in range.
func (m *Model) refresh() {
	m.visible = m.roster.FindByID(m.query)
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selected returns the row under the cursor, if any.
func (m Model) selected() (types.Student, bool) {
	if len(m.visible) == 0 {
		return types.Student{}, false
	}
	return m.visible[m.cursor], true
}
