package models

import (
	"fmt"
	"strings"

	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/charmbracelet/lipgloss"
)

var excludedLabel = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FF4E4E")).
	Render("[Excluded]")

// RouteItem wraps a RouteTool for display in the selection list.
// Implements list.DefaultItem.
type RouteItem struct {
	Tool *parser.RouteTool
	// Override replaces the schema description when non-empty.
	Override string
	Excluded bool
}

func (i RouteItem) Path() string {
	return i.Tool.RouteConfig.Path
}

func (i RouteItem) Method() string {
	return i.Tool.RouteConfig.Method
}

func (i RouteItem) Title() string {
	return fmt.Sprintf("%s %s", i.Method(), i.Path())
}

func (i RouteItem) Description() string {
	if i.Excluded {
		return excludedLabel
	}
	return i.EffectiveDescription()
}

// EffectiveDescription is the text the MCP tool will carry.
func (i RouteItem) EffectiveDescription() string {
	if i.Override != "" {
		return i.Override
	}
	if i.Tool.RouteConfig.Description != "" {
		return i.Tool.RouteConfig.Description
	}
	return i.Tool.Tool.Name
}

// WithOverride sets the description override. Passing the schema text clears it.
func (i RouteItem) WithOverride(description string) RouteItem {
	description = strings.TrimSpace(description)
	if description == i.Tool.RouteConfig.Description {
		description = ""
	}
	i.Override = description
	return i
}

func (i RouteItem) ToggleExcluded() RouteItem {
	i.Excluded = !i.Excluded
	return i
}

func (i RouteItem) FilterValue() string {
	return i.Method() + " " + i.Path() + " " + i.EffectiveDescription()
}
