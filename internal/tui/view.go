package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/utils/report"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4BEFE"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#CBA6F7"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#89B4FA"))

	savedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	focusStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8")).Padding(1, 0)
)

const rowFormat = "%-10s %-14s %-14s %-4s %-15s %-16s"

// View renders the roster list, the optional log panel and the status line.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Student Roster") + "  " + m.renderState() + "\n")
	if perr := m.roster.Truncation(); perr != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("! %s truncated at line %d (%s), later lines were not loaded",
			perr.Path, perr.Line, perr.Reason)) + "\n")
	}
	s.WriteString("\n")

	if m.searching || m.query != "" {
		cursor := ""
		if m.searching {
			cursor = "_"
		}
		s.WriteString(fmt.Sprintf("Search ID: %s%s\n\n", m.query, cursor))
	}

	s.WriteString(fmt.Sprintf("%d of %d students\n\n", len(m.visible), len(m.roster.Students())))

	header := fmt.Sprintf(rowFormat, "ID", "NAME", "SURNAME", "AGE", "PHONE", "COURSE")
	s.WriteString("  " + headerStyle.Render(header) + "\n")

	if len(m.visible) == 0 {
		s.WriteString("\n  No students.\n")
	}
	for i, st := range m.visible {
		line := fmt.Sprintf(rowFormat,
			truncate(st.ID, 10),
			truncate(st.Name, 14),
			truncate(st.Surname, 14),
			strconv.Itoa(st.Age),
			truncate(st.PhoneNumber, 15),
			truncate(st.Course, 16),
		)
		if i == m.cursor {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}

	if m.showLogs {
		s.WriteString("\n" + titleStyle.Render("Activity log") + "\n")
		s.WriteString(report.LogTable(m.logs) + "\n")
	}

	if m.form != nil {
		s.WriteString("\n" + m.renderForm())
	}

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	for _, line := range m.errLines {
		s.WriteString(errorStyle.Render(line) + "\n")
	}

	help := "[↑/k] up  [↓/j] down  [/] search  [r] show all  [a] add  [e] edit  [d] delete\n" +
		"[s] save  [u] discard  [m] summary  [l] logs  [q] quit"
	if m.form != nil {
		help = "[tab/↓] next field  [shift+tab/↑] previous field  [enter] submit  [esc] cancel"
	}
	s.WriteString(helpStyle.Render(help))

	return s.String()
}

func (m Model) renderState() string {
	switch m.roster.State() {
	case roster.Modified:
		return modifiedStyle.Render("● unsaved changes")
	case roster.Saved:
		return savedStyle.Render("✓ saved")
	default:
		return ""
	}
}

func (m Model) renderForm() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(m.form.title()) + "\n")
	for i, label := range formLabels {
		line := fmt.Sprintf("%-8s %s", label+":", m.form.values[i])
		if i == m.form.focus {
			s.WriteString(focusStyle.Render("> "+line+"_") + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	return s.String()
}

// truncate shortens s to at most max cells, ending in "..." when cut.
func truncate(s string, max int) string {
	return ansi.Truncate(s, max, "...")
}
