package tui

import (
	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"

	tea "github.com/charmbracelet/bubbletea"
)

// listKeyMap holds key bindings for the list actions.
type listKeyMap struct {
	editDescription key.Binding
	save            key.Binding
	cancelEdit      key.Binding
	finish          key.Binding
	quit            key.Binding
}

// DoneMsg is sent when the user finishes editing the selection.
type DoneMsg struct {
	Items []models.RouteItem
}

func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		editDescription: key.NewBinding(
			key.WithKeys("E", "e"),
			key.WithHelp("e", "Edit description"),
		),
		save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),
		cancelEdit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "Discard changes"),
		),
		finish: key.NewBinding(
			key.WithKeys("F", "ctrl+f"),
			key.WithHelp("F", "Finish"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
	}
}

// ListItemModel lists every route of the schema and lets the user exclude
// routes or override their descriptions.
type ListItemModel struct {
	list      list.Model
	keys      *listKeyMap
	editing   bool
	editIndex int
	editModal DescriptionEditorModal
}

// NewListItemModel builds the list. selection pre-marks routes from an existing
// selection file; nil starts with every route included.
func NewListItemModel(routeTools []*parser.RouteTool, selection *parser.Selection) ListItemModel {
	listKeys := newListKeyMap()

	items := make([]list.Item, len(routeTools))
	for i, rt := range routeTools {
		path, method := rt.RouteConfig.Path, rt.RouteConfig.Method
		items[i] = models.RouteItem{Tool: rt}.
			WithOverride(selection.Description(path, method, rt.RouteConfig.Description))
		if !selection.Includes(path, method) {
			items[i] = items[i].(models.RouteItem).ToggleExcluded()
		}
	}

	l := list.New(items, newItemDelegate(newDelegateKeyMap()), 0, 0)
	l.Title = titleStyle.Render("DataPort MCP tools")
	l.SetShowFilter(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			listKeys.editDescription,
			listKeys.finish,
			listKeys.quit,
		}
	}

	return ListItemModel{list: l, keys: listKeys, editIndex: -1}
}

func (m ListItemModel) Init() tea.Cmd {
	return nil
}

func (m ListItemModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditModeUpdate(msg)
	}
	return m.handleListModeUpdate(msg)
}

func (m ListItemModel) handleEditModeUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.save):
			m.editing = false
			item := m.list.Items()[m.editIndex].(models.RouteItem)
			updated := item.WithOverride(m.editModal.Description())
			if updated.Override == item.Override {
				return m, nil
			}
			return m, tea.Batch(
				m.list.SetItem(m.editIndex, updated),
				m.list.NewStatusMessage(statusMessageStyle("Updated description for "+item.Title())),
			)
		case key.Matches(msg, m.keys.cancelEdit):
			m.editing = false
			return m, nil
		}

	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.editModal, cmd = m.editModal.Update(msg)
	return m, cmd
}

func (m ListItemModel) handleListModeUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.editDescription):
			item, ok := m.list.SelectedItem().(models.RouteItem)
			if !ok {
				return m, nil
			}
			if item.Excluded {
				return m, m.list.NewStatusMessage(statusMessageStyle("Can't edit excluded routes"))
			}
			m.editing = true
			m.editIndex = itemIndex(&m.list, item)
			m.editModal = NewEditModal(item.EffectiveDescription())
			return m, m.editModal.Init()
		case key.Matches(msg, m.keys.finish):
			items := m.RouteItems()
			return m, func() tea.Msg {
				return DoneMsg{Items: items}
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ListItemModel) View() string {
	if m.editing {
		item := m.list.Items()[m.editIndex].(models.RouteItem)
		return docStyle.Render(m.editModal.View(item.Title()))
	}
	return docStyle.Render(m.list.View())
}

// RouteItems returns every route, including those hidden by the current filter.
func (m ListItemModel) RouteItems() []models.RouteItem {
	all := m.list.Items()
	result := make([]models.RouteItem, 0, len(all))
	for _, item := range all {
		if ri, ok := item.(models.RouteItem); ok {
			result = append(result, ri)
		}
	}
	return result
}

// busy reports whether esc belongs to the list itself (editing or filtering).
func (m ListItemModel) busy() bool {
	return m.editing || m.list.FilterState() != list.Unfiltered
}
