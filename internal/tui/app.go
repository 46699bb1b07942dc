package tui

import (
	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

type page int

const (
	pageMain page = iota
	pageList
	pageExport
)

// SelectionApp switches between the landing page, the tool list and the
// export prompt of `dataport mcp select`.
type SelectionApp struct {
	mainPage   MainPageModel
	listView   ListItemModel
	exportView ExportView
	outputPath string
	page       page
}

// SelectionOptions configures NewSelectionApp.
type SelectionOptions struct {
	// Source names the schema the routes were parsed from.
	Source string
	// Existing pre-marks routes from a previous selection file; may be nil.
	Existing *parser.Selection
	// OutputPath pre-fills the export prompt.
	OutputPath string
}

func NewSelectionApp(routeTools []*parser.RouteTool, opts SelectionOptions) SelectionApp {
	return SelectionApp{
		mainPage:   NewMainPageModel(routeTools, opts.Source),
		listView:   NewListItemModel(routeTools, opts.Existing),
		outputPath: opts.OutputPath,
		page:       pageMain,
	}
}

func (m SelectionApp) Init() tea.Cmd {
	return tea.Batch(
		m.mainPage.Init(),
		m.listView.Init(),
	)
}

func (m SelectionApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case OpenListMsg:
		m.page = pageList
		return m, m.listView.Init()

	case DoneMsg:
		m.page = pageExport
		m.exportView = NewExportView(msg.Items, m.outputPath)
		return m, m.exportView.Init()

	case BackToListMsg:
		m.page = pageList
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "esc" && m.page == pageList && !m.listView.busy() {
			m.page = pageMain
			return m, nil
		}

	case tea.WindowSizeMsg:
		var cmds []tea.Cmd
		var next tea.Model
		var cmd tea.Cmd

		next, cmd = m.mainPage.Update(msg)
		m.mainPage = next.(MainPageModel)
		cmds = append(cmds, cmd)

		next, cmd = m.listView.Update(msg)
		m.listView = next.(ListItemModel)
		cmds = append(cmds, cmd)

		next, cmd = m.exportView.Update(msg)
		m.exportView = next.(ExportView)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	var next tea.Model
	var cmd tea.Cmd
	switch m.page {
	case pageMain:
		next, cmd = m.mainPage.Update(msg)
		m.mainPage = next.(MainPageModel)
	case pageList:
		next, cmd = m.listView.Update(msg)
		m.listView = next.(ListItemModel)
	case pageExport:
		next, cmd = m.exportView.Update(msg)
		m.exportView = next.(ExportView)
	}
	return m, cmd
}

func (m SelectionApp) View() string {
	switch m.page {
	case pageMain:
		return m.mainPage.View()
	case pageExport:
		return m.exportView.View()
	default:
		return m.listView.View()
	}
}

// RouteItems returns the routes as edited so far.
func (m SelectionApp) RouteItems() []models.RouteItem {
	return m.listView.RouteItems()
}

// Saved reports whether the selection file was written, and where.
func (m SelectionApp) Saved() (string, bool) {
	return m.exportView.Path, m.exportView.Success
}
