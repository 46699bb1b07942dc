package tui

import (
	"fmt"
	"strings"

	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxPreviewRoutes = 5

type mainPageKeyMap struct {
	open key.Binding
	quit key.Binding
}

func newMainPageKeyMap() *mainPageKeyMap {
	return &mainPageKeyMap{
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open tool list"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("ctrl+c/q", "Quit"),
		),
	}
}

// MainPageModel is the landing page of `dataport mcp select`.
type MainPageModel struct {
	keys       *mainPageKeyMap
	width      int
	height     int
	routeTools []*parser.RouteTool
	source     string
}

// OpenListMsg is sent when the user opens the tool list.
type OpenListMsg struct{}

// NewMainPageModel creates the landing page for routes parsed from source.
func NewMainPageModel(routeTools []*parser.RouteTool, source string) MainPageModel {
	return MainPageModel{
		keys:       newMainPageKeyMap(),
		routeTools: routeTools,
		source:     source,
	}
}

func (m MainPageModel) Init() tea.Cmd {
	return nil
}

func (m MainPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.open):
			return m, func() tea.Msg { return OpenListMsg{} }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m MainPageModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	centered := lipgloss.NewStyle().
		Padding(1, 0).
		Width(m.width - 4).
		Align(lipgloss.Center)

	description := centered.Render(
		"Choose which DataPort API routes the MCP server exposes as tools\n" +
			"and rewrite their descriptions for the assistant.\n\n" +
			fmt.Sprintf("Schema %s provides %s.", m.source, pluralize(len(m.routeTools), "route")),
	)

	previewStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#f56a96")).
		Padding(1, 1).
		Width(m.width - 10).
		Align(lipgloss.Left)

	var preview strings.Builder
	for i, route := range m.routeTools {
		if i == maxPreviewRoutes {
			fmt.Fprintf(&preview, "\n... and %d more", len(m.routeTools)-maxPreviewRoutes)
			break
		}
		fmt.Fprintf(&preview, "%s %s\n", route.RouteConfig.Method, route.RouteConfig.Path)
	}

	instruction := centered.
		Foreground(lipgloss.Color("#f56a96")).
		Render("Press ENTER to open the tool list")
	help := helpStyle.
		Width(m.width - 4).
		Align(lipgloss.Center).
		Render("Press q or Ctrl+C to quit")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		titleStyle.Render("DataPort MCP tool selection"),
		"",
		description,
		"",
		previewStyle.Render(preview.String()),
		"",
		instruction,
		"",
		help,
	)

	return docStyle.Render(content)
}

func pluralize(count int, singular string) string {
	if count == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %ss", count, singular)
}
