package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/tui/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"
)

// ExportView prompts for a filename and writes the selection file.
type ExportView struct {
	items        []models.RouteItem
	textInput    textinput.Model
	err          error
	width        int
	height       int
	exportStatus string
	// Success is set once the file was written; Path holds where.
	Success bool
	Path    string
}

// NewExportView creates the export prompt, pre-filled with defaultPath.
func NewExportView(items []models.RouteItem, defaultPath string) ExportView {
	ti := textinput.New()
	ti.Placeholder = "selection.yaml"
	ti.SetValue(defaultPath)
	ti.Focus()
	ti.Width = 40

	return ExportView{
		items:     items,
		textInput: ti,
	}
}

func (m ExportView) Init() tea.Cmd {
	return textinput.Blink
}

func (m ExportView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return BackToListMsg{} }
		case "enter":
			filename := strings.TrimSpace(m.textInput.Value())
			if filename == "" {
				m.exportStatus = "Please enter a filename"
				return m, nil
			}
			if ext := filepath.Ext(filename); ext != ".yaml" && ext != ".yml" {
				filename += ".yaml"
			}

			if err := ExportSelectionFile(m.items, filename); err != nil {
				m.err = err
				m.exportStatus = errorMessageStyle(fmt.Sprintf("Error exporting: %v", err))
				return m, nil
			}

			m.Success = true
			m.Path = filename
			m.exportStatus = completeMessageStyle(fmt.Sprintf("Saved selection to %s", filename))
			return m, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tea.Quit()
			})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m ExportView) View() string {
	var sb strings.Builder

	verticalPadding := (m.height - 6) / 2
	for i := 0; i < verticalPadding; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(centerText(titleStyle.Render("Save tool selection"), m.width))
	sb.WriteString("\n\n")
	sb.WriteString(centerText(selectionSummary(m.items), m.width))
	sb.WriteString("\n\n")
	sb.WriteString(centerText("Selection file:", m.width))
	sb.WriteString("\n")
	sb.WriteString(centerText(m.textInput.View(), m.width))
	sb.WriteString("\n\n")

	if m.exportStatus != "" {
		sb.WriteString(centerText(m.exportStatus, m.width))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(centerText(helpStyle.Render("(esc) Back to routes | (enter) Save"), m.width))

	return sb.String()
}

// BackToListMsg returns from the export prompt to the route list.
type BackToListMsg struct{}

// BuildSelectionFile turns the edited routes into a selection document.
// Included routes are listed explicitly; if none are, the excluded ones are
// written under exclude instead since an empty routes list selects everything.
func BuildSelectionFile(items []models.RouteItem) parser.SelectionFile {
	descriptions := make(map[string][]parser.RouteFieldUpdate)
	included := make(map[string][]string)
	excluded := make(map[string][]string)

	for _, item := range items {
		path, method := item.Path(), item.Method()
		if item.Override != "" {
			descriptions[path] = append(descriptions[path], parser.RouteFieldUpdate{
				Method:         method,
				NewDescription: item.Override,
			})
		}
		if item.Excluded {
			excluded[path] = append(excluded[path], method)
		} else {
			included[path] = append(included[path], method)
		}
	}

	var file parser.SelectionFile
	for _, path := range sortedKeys(descriptions) {
		file.Descriptions = append(file.Descriptions, parser.RouteDescription{
			Path:    path,
			Updates: descriptions[path],
		})
	}

	routes := included
	if len(included) == 0 {
		routes = excluded
	}
	selections := make([]parser.RouteSelection, 0, len(routes))
	for _, path := range sortedKeys(routes) {
		selections = append(selections, parser.RouteSelection{Path: path, Methods: routes[path]})
	}
	if len(included) == 0 {
		file.Exclude = selections
	} else {
		file.Routes = selections
	}
	return file
}

// ExportSelectionFile writes BuildSelectionFile(items) as YAML.
func ExportSelectionFile(items []models.RouteItem, filename string) error {
	data, err := yaml.Marshal(BuildSelectionFile(items))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filename, data, 0o644)
}

func selectionSummary(items []models.RouteItem) string {
	kept := 0
	for _, item := range items {
		if !item.Excluded {
			kept++
		}
	}
	return fmt.Sprintf("%d of %d tools enabled", kept, len(items))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func centerText(text string, width int) string {
	if width <= len(text) {
		return text
	}

	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
