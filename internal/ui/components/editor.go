package components

import (
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
)

// Editor is a multi-line code editor for exercise solutions.
type Editor struct {
	Model textarea.Model
}

// NewEditor creates an editor holding code, focused.
func NewEditor(code string) Editor {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Placeholder = "# write your Python here"
	ta.CharLimit = 0
	ta.SetValue(code)
	return Editor{Model: ta}
}

// Focus gives the editor the cursor.
func (e *Editor) Focus() tea.Cmd {
	return e.Model.Focus()
}

// SetSize resizes the editing area.
func (e *Editor) SetSize(width, height int) {
	e.Model.SetWidth(width)
	e.Model.SetHeight(height)
}

// Update handles messages.
func (e Editor) Update(msg tea.Msg) (Editor, tea.Cmd) {
	var cmd tea.Cmd
	e.Model, cmd = e.Model.Update(msg)
	return e, cmd
}

// View renders the editor.
func (e Editor) View() string {
	return e.Model.View()
}

// Code returns the editor contents.
func (e Editor) Code() string {
	return e.Model.Value()
}
