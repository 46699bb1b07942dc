// Package parser converts the DataPort OpenAPI schema into MCP tools.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// authPrefix routes manage the session itself and are never exposed as tools.
const authPrefix = "/auth/"

var toolNameCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// NewSwaggerParser creates a new SwaggerParser instance
func NewSwaggerParser(cfg *config.Config, selection *Selection, fetcher SchemaFetcher) *SwaggerParser {
	var basePath string
	if u, err := url.Parse(cfg.API.BaseURL); err == nil {
		basePath = strings.TrimRight(u.Path, "/")
	}
	if selection == nil {
		selection = NewSelection()
	}
	return &SwaggerParser{
		routeTools: make([]*RouteTool, 0),
		selection:  selection,
		fetcher:    fetcher,
		basePath:   basePath,
	}
}

// GetRouteTools returns the parsed route tools
func (p *SwaggerParser) GetRouteTools() []*RouteTool {
	return p.routeTools
}

// Init loads the schema from source (a file path or an http(s) URL), applies the
// selection file and builds the tools.
func (p *SwaggerParser) Init(ctx context.Context, source string, selectionFile string) error {
	if err := p.selection.Load(selectionFile); err != nil {
		return fmt.Errorf("failed to load selection file: %w", err)
	}

	data, err := p.readSchema(ctx, source)
	if err != nil {
		return err
	}

	if err := p.detectAndParseOpenAPI(data); err != nil {
		return err
	}
	return p.processOperations()
}

// ParseReader parses a schema from a reader
func (p *SwaggerParser) ParseReader(reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if err := p.detectAndParseOpenAPI(data); err != nil {
		return err
	}
	return p.processOperations()
}

func (p *SwaggerParser) readSchema(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		return data, nil
	}

	if p.fetcher == nil {
		return nil, fmt.Errorf("cannot fetch schema from %s: no HTTP client configured", source)
	}
	logger.Info("Fetching API schema", zap.String("url", source))
	resp, err := p.fetcher.Do(ctx, &requester.Request{
		Method:  http.MethodGet,
		URL:     source,
		Query:   url.Values{"format": []string{"json"}},
		Headers: map[string]string{"Accept": "application/vnd.oai.openapi+json, application/json, application/yaml"},
	}, requester.NoAuth{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch schema: HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// detectAndParseOpenAPI accepts OpenAPI 3 (JSON or YAML) and Swagger 2.0, which
// is converted to OpenAPI 3.
func (p *SwaggerParser) detectAndParseOpenAPI(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// drf-spectacular serves YAML unless JSON is negotiated
		raw = nil
		if yamlErr := yaml.Unmarshal(data, &raw); yamlErr != nil || raw == nil {
			return fmt.Errorf("invalid OpenAPI document: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("invalid OpenAPI document: %w", err)
		}
	}

	swaggerVersion, hasSwagger := raw["swagger"]
	openapiVersion, hasOpenAPI := raw["openapi"]
	if !hasSwagger && !hasOpenAPI {
		return fmt.Errorf("document is missing 'swagger' or 'openapi' version field")
	}

	if hasSwagger {
		doc, err := p.convertOpenAPI2to3(data, swaggerVersion)
		if err != nil {
			return err
		}
		p.doc = doc
		return nil
	}

	if ver, ok := openapiVersion.(string); !ok || !strings.HasPrefix(ver, "3.") {
		return fmt.Errorf("unsupported OpenAPI version: %v", openapiVersion)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		logger.Error("Failed to parse OpenAPI 3 schema", zap.Error(err))
		return fmt.Errorf("failed to parse OpenAPI schema: %w", err)
	}
	if doc == nil || doc.Paths == nil {
		return fmt.Errorf("failed to parse OpenAPI schema: document is empty")
	}

	logger.Info("Parsed OpenAPI schema", zap.String("title", infoTitle(doc)), zap.Int("paths", doc.Paths.Len()))
	p.doc = doc
	return nil
}

func (p *SwaggerParser) convertOpenAPI2to3(data []byte, swaggerVersion interface{}) (*openapi3.T, error) {
	if v, _ := swaggerVersion.(string); v != "2.0" {
		return nil, fmt.Errorf("unsupported Swagger version: %v", swaggerVersion)
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, fmt.Errorf("failed to parse Swagger 2.0 schema: %w", err)
	}

	logger.Info("Detected Swagger 2.0 schema, converting to OpenAPI 3")
	doc, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert Swagger 2.0 to OpenAPI 3: %w", err)
	}
	return doc, nil
}

func infoTitle(doc *openapi3.T) string {
	if doc.Info == nil {
		return ""
	}
	return doc.Info.Title
}

// processOperations walks the schema in path order and builds one tool per
// selected operation.
func (p *SwaggerParser) processOperations() error {
	p.routeTools = p.routeTools[:0]

	pathMap := p.doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	strip := false
	for _, schemaPath := range paths {
		if p.basePath != "" && strings.HasPrefix(schemaPath, p.basePath+"/") {
			strip = true
			break
		}
	}

	for _, schemaPath := range paths {
		route, ok := p.routePath(schemaPath, strip)
		if !ok {
			logger.Debug("Skipping path outside the API base", zap.String("path", schemaPath))
			continue
		}
		if strings.HasPrefix(route, authPrefix) {
			continue
		}

		pathItem := pathMap[schemaPath]
		for _, op := range []struct {
			method    string
			operation *openapi3.Operation
		}{
			{http.MethodGet, pathItem.Get},
			{http.MethodPost, pathItem.Post},
			{http.MethodPut, pathItem.Put},
			{http.MethodPatch, pathItem.Patch},
			{http.MethodDelete, pathItem.Delete},
		} {
			if op.operation == nil || !p.selection.Includes(route, op.method) {
				continue
			}
			routeConfig, params := p.createRouteConfig(route, op.method, pathItem, op.operation)
			p.routeTools = append(p.routeTools, &RouteTool{
				RouteConfig: routeConfig,
				Tool:        p.generateTool(routeConfig, params, op.operation),
			})
		}
	}

	logger.Info("Generated MCP tools", zap.Int("count", len(p.routeTools)))
	return nil
}

// routePath maps a schema path onto a path relative to the API base URL. When the
// schema carries the base path (DataPort serves /api/v1/... next to unversioned
// legacy routes) only paths under it are kept; otherwise paths are already relative.
func (p *SwaggerParser) routePath(schemaPath string, strip bool) (string, bool) {
	if !strip {
		return schemaPath, true
	}
	if !strings.HasPrefix(schemaPath, p.basePath+"/") {
		return "", false
	}
	return strings.TrimPrefix(schemaPath, p.basePath), true
}

func (p *SwaggerParser) createRouteConfig(route, method string, item *openapi3.PathItem, operation *openapi3.Operation) (*requester.RouteConfig, []*openapi3.Parameter) {
	desc := operation.Description
	if desc == "" {
		desc = operation.Summary
	}

	routeConfig := &requester.RouteConfig{
		Path:        route,
		Method:      method,
		Description: p.selection.Description(route, method, desc),
	}

	params := mergeParameters(item.Parameters, operation.Parameters)
	for _, param := range params {
		if param.In == openapi3.ParameterInQuery {
			routeConfig.QueryParams = append(routeConfig.QueryParams, param.Name)
		}
	}
	return routeConfig, params
}

// mergeParameters returns path-level parameters overridden by operation-level ones.
func mergeParameters(pathParams, opParams openapi3.Parameters) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{pathParams, opParams} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if i, ok := index[key]; ok {
				out[i] = ref.Value
				continue
			}
			index[key] = len(out)
			out = append(out, ref.Value)
		}
	}
	return out
}

// toolName derives a stable MCP tool name: "get_data_import_datasets_id".
func toolName(method, route string) string {
	name := strings.ToLower(method + "_" + route)
	name = toolNameCleaner.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// generateTool creates an MCP tool from a route configuration
func (p *SwaggerParser) generateTool(route *requester.RouteConfig, params []*openapi3.Parameter, operation *openapi3.Operation) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("%s %s \n %s", route.Method, route.Path, route.Description)),
	}

	described := make(map[string]*openapi3.Parameter)
	for _, param := range params {
		described[param.In+":"+param.Name] = param
	}

	for _, name := range extractPathParams(route.Path) {
		desc := fmt.Sprintf("Path parameter: %s", name)
		if param, ok := described[openapi3.ParameterInPath+":"+name]; ok && param.Description != "" {
			desc = param.Description
		}
		opts = append(opts, mcp.WithString(name, mcp.Required(), mcp.Description(desc)))
	}

	for _, name := range route.QueryParams {
		opts = append(opts, queryParamOption(described[openapi3.ParameterInQuery+":"+name]))
	}

	switch route.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if schema, required := getFirstBodySchema(operation); schema != nil {
			opts = append(opts, schemaToMCPOptions(schema, "body", required))
		}
	}

	return mcp.NewTool(toolName(route.Method, route.Path), opts...)
}

func queryParamOption(param *openapi3.Parameter) mcp.ToolOption {
	desc := fmt.Sprintf("Query parameter: %s", param.Name)
	if param.Description != "" {
		desc = param.Description
	}
	propOpts := []mcp.PropertyOption{mcp.Description(desc)}
	if param.Required {
		propOpts = append(propOpts, mcp.Required())
	}

	if param.Schema != nil && param.Schema.Value != nil && param.Schema.Value.Type != nil {
		s := param.Schema.Value
		switch {
		case s.Type.Includes(openapi3.TypeInteger) || s.Type.Includes(openapi3.TypeNumber):
			return mcp.WithNumber(param.Name, propOpts...)
		case s.Type.Includes(openapi3.TypeBoolean):
			return mcp.WithBoolean(param.Name, propOpts...)
		case s.Type.Includes(openapi3.TypeString):
			if enum := stringEnum(s.Enum); len(enum) > 0 {
				propOpts = append(propOpts, mcp.Enum(enum...))
			}
		}
	}
	return mcp.WithString(param.Name, propOpts...)
}

// getFirstBodySchema returns the request body schema, merging the properties of
// every content type when the operation accepts several (JSON, form, multipart).
func getFirstBodySchema(operation *openapi3.Operation) (*openapi3.SchemaRef, bool) {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil, false
	}
	body := operation.RequestBody.Value
	if len(body.Content) == 0 {
		return nil, false
	}

	if mediaType := body.Content.Get("application/json"); mediaType != nil && mediaType.Schema != nil {
		return mediaType.Schema, body.Required
	}
	if len(body.Content) == 1 {
		for _, mediaType := range body.Content {
			return mediaType.Schema, body.Required
		}
	}

	merged := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{openapi3.TypeObject},
			Properties: make(openapi3.Schemas),
		},
	}
	for _, mediaType := range body.Content {
		if mediaType.Schema == nil || mediaType.Schema.Value == nil {
			continue
		}
		for name, prop := range mediaType.Schema.Value.Properties {
			merged.Value.Properties[name] = prop
		}
		for _, req := range mediaType.Schema.Value.Required {
			if !contains(merged.Value.Required, req) {
				merged.Value.Required = append(merged.Value.Required, req)
			}
		}
	}
	return merged, body.Required
}

// extractPathParams extracts path parameters from a URL path
func extractPathParams(path string) []string {
	var params []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			params = append(params, strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}"))
		}
	}
	return params
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
