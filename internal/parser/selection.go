package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/brizzai/dataport-cli/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// RouteFieldUpdate overrides the description of one method on a route.
type RouteFieldUpdate struct {
	Method         string `yaml:"method"`
	NewDescription string `yaml:"new_description"`
}

type RouteDescription struct {
	Path    string             `yaml:"path"`
	Updates []RouteFieldUpdate `yaml:"updates"`
}

// RouteSelection picks methods on a route. Path may be a path.Match pattern
// ("/data-import/datasets/*/"); no methods means all of them.
type RouteSelection struct {
	Path    string   `yaml:"path"`
	Methods []string `yaml:"methods,omitempty"`
}

// SelectionFile is the YAML document that narrows which routes become tools.
type SelectionFile struct {
	Descriptions []RouteDescription `yaml:"descriptions,omitempty"`
	Routes       []RouteSelection   `yaml:"routes,omitempty"`
	Exclude      []RouteSelection   `yaml:"exclude,omitempty"`
}

// Selection filters routes and overrides descriptions from a SelectionFile.
type Selection struct {
	file *SelectionFile
}

func NewSelection() *Selection {
	return &Selection{file: &SelectionFile{}}
}

// Load reads a selection file. An empty path keeps every route.
func (s *Selection) Load(filePath string) error {
	if filePath == "" {
		return nil
	}

	logger.Info("Loading route selection", zap.String("file", filePath))
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("selection file %s not found", filePath)
	}
	if err != nil {
		return err
	}

	var file SelectionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("invalid selection file %s: %w", filePath, err)
	}
	s.file = &file
	return nil
}

// Includes reports whether method on route becomes a tool. Without any routes
// listed everything is included; Exclude always wins.
func (s *Selection) Includes(route, method string) bool {
	if s == nil || s.file == nil {
		return true
	}
	for _, sel := range s.file.Exclude {
		if sel.matches(route, method) {
			return false
		}
	}
	if len(s.file.Routes) == 0 {
		return true
	}
	for _, sel := range s.file.Routes {
		if sel.matches(route, method) {
			return true
		}
	}
	return false
}

// Description returns the override for route/method, or original.
func (s *Selection) Description(route, method, original string) string {
	if s == nil || s.file == nil {
		return original
	}
	for _, desc := range s.file.Descriptions {
		if desc.Path != route {
			continue
		}
		for _, update := range desc.Updates {
			if strings.EqualFold(update.Method, method) {
				return update.NewDescription
			}
		}
		break
	}
	return original
}

func (r RouteSelection) matches(route, method string) bool {
	if r.Path != route {
		ok, err := path.Match(r.Path, route)
		if err != nil || !ok {
			return false
		}
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
