package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// DescriptionEditorModal holds the textarea used to rewrite a tool description.
type DescriptionEditorModal struct {
	textarea textarea.Model
}

// NewEditModal creates a focused editor holding initial.
func NewEditModal(initial string) DescriptionEditorModal {
	ta := textarea.New()
	ta.Placeholder = "Describe what this tool does for the assistant..."
	ta.CharLimit = 2000
	ta.SetWidth(72)
	ta.SetHeight(8)
	ta.SetValue(initial)
	ta.Focus()
	return DescriptionEditorModal{textarea: ta}
}

func (m DescriptionEditorModal) Init() tea.Cmd {
	return textarea.Blink
}

func (m DescriptionEditorModal) Update(msg tea.Msg) (DescriptionEditorModal, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEsc:
			if m.textarea.Focused() {
				m.textarea.Blur()
			}
		case tea.KeyCtrlC:
			return m, tea.Quit
		default:
			if !m.textarea.Focused() {
				cmds = append(cmds, m.textarea.Focus())
			}
		}
	}

	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// Description returns the edited text.
func (m DescriptionEditorModal) Description() string {
	return m.textarea.Value()
}

func (m DescriptionEditorModal) View(title string) string {
	return fmt.Sprintf(
		"%s\n\n%s\n\n%s",
		editHeaderStyle.Render(title),
		m.textarea.View(),
		helpStyle.Render("ctrl+s save • ctrl+q discard"),
	) + "\n\n"
}
