package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// formLabels are shown in this order; values is indexed the same way.
var formLabels = []string{"ID", "Name", "Surname", "Age", "Phone", "Course"}

// formState is the add/edit form. editing is the ID of the record being
// changed, empty when adding.
type formState struct {
	editing string
	values  []string
	focus   int
}

func newAddForm() *formState {
	return &formState{values: make([]string, len(formLabels))}
}

func newEditForm(s types.Student) *formState {
	f := types.FormFrom(s)
	return &formState{
		editing: s.ID,
		values:  []string{f.ID, f.Name, f.Surname, f.Age, f.PhoneNumber, f.Course},
	}
}

func (f *formState) title() string {
	if f.editing == "" {
		return "Add student"
	}
	return "Edit student " + f.editing
}

// form builds the validated input. A bare 10-digit phone number is put into
// the display mask first.
func (f *formState) form() types.Form {
	return types.Form{
		ID:          f.values[0],
		Name:        f.values[1],
		Surname:     f.values[2],
		Age:         f.values[3],
		PhoneNumber: roster.FormatPhone(f.values[4]),
		Course:      f.values[5],
	}
}

// edit applies one key to the focused field. It reports false for keys it
// does not handle.
func (f *formState) edit(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		f.focus = (f.focus + 1) % len(f.values)
	case tea.KeyShiftTab, tea.KeyUp:
		f.focus = (f.focus + len(f.values) - 1) % len(f.values)
	case tea.KeyBackspace:
		if r := []rune(f.values[f.focus]); len(r) > 0 {
			f.values[f.focus] = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		f.values[f.focus] += " "
	case tea.KeyRunes:
		f.values[f.focus] += string(msg.Runes)
	default:
		return false
	}
	return true
}
