package tui

import (
	"github.com/brizzai/dataport-cli/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// newItemDelegate returns a list.DefaultDelegate that toggles route exclusion.
func newItemDelegate(keys *delegateKeyMap) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		item, ok := m.SelectedItem().(models.RouteItem)
		if !ok {
			return nil
		}

		keyMsg, ok := msg.(tea.KeyMsg)
		if !ok || !key.Matches(keyMsg, keys.exclude) {
			return nil
		}

		updated := item.ToggleExcluded()
		cmd := m.SetItem(itemIndex(m, item), updated)
		if updated.Excluded {
			return tea.Batch(cmd, m.NewStatusMessage(statusMessageStyle("Excluded "+item.Title())))
		}
		return tea.Batch(cmd, m.NewStatusMessage(statusMessageStyle("Included "+item.Title())))
	}

	help := []key.Binding{keys.exclude}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for list item actions.
type delegateKeyMap struct {
	exclude key.Binding
}

func (d delegateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{d.exclude}
}

func (d delegateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{d.exclude}}
}

func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		exclude: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "Exclude/include tool"),
		),
	}
}

// itemIndex finds item among all items; m.Index() only counts visible ones.
func itemIndex(m *list.Model, item models.RouteItem) int {
	for i, it := range m.Items() {
		if ri, ok := it.(models.RouteItem); ok && ri.Tool == item.Tool {
			return i
		}
	}
	return m.Index()
}
