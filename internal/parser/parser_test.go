package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dataportSchema is trimmed from what drf-spectacular serves at /api/schema/.
const dataportSchema = `{
	"openapi": "3.0.3",
	"info": {"title": "DataPort API", "version": "1.0.0"},
	"paths": {
		"/api/v1/auth/login/": {
			"post": {"operationId": "v1_auth_login_create", "responses": {"200": {"description": ""}}}
		},
		"/api/v1/auth/refresh/": {
			"post": {"operationId": "v1_auth_refresh_create", "responses": {"200": {"description": ""}}}
		},
		"/api/v1/data-import/imports/": {
			"get": {
				"summary": "List import processes",
				"parameters": [
					{"name": "page", "in": "query", "required": false, "description": "A page number within the paginated result set.", "schema": {"type": "integer"}},
					{"name": "status", "in": "query", "schema": {"type": "string", "enum": ["pending", "processing", "completed", "failed"]}}
				],
				"responses": {"200": {"description": ""}}
			},
			"post": {
				"description": "Start a data import from an endpoint URL or an uploaded file",
				"requestBody": {
					"required": true,
					"content": {
						"application/json": {"schema": {"$ref": "#/components/schemas/DataImportRequest"}},
						"multipart/form-data": {"schema": {"$ref": "#/components/schemas/DataImportRequest"}}
					}
				},
				"responses": {"201": {"description": ""}}
			}
		},
		"/api/v1/data-import/imports/{id}/": {
			"parameters": [
				{"name": "id", "in": "path", "required": true, "description": "A unique integer value identifying this import.", "schema": {"type": "integer"}}
			],
			"get": {"summary": "Retrieve an import process", "responses": {"200": {"description": ""}}},
			"patch": {
				"summary": "Update an import process",
				"requestBody": {
					"content": {"application/json": {"schema": {"$ref": "#/components/schemas/DataImportProcess"}}}
				},
				"responses": {"200": {"description": ""}}
			},
			"delete": {"summary": "Delete an import process", "responses": {"204": {"description": ""}}}
		},
		"/api/data-import/imports/": {
			"get": {"summary": "Legacy unversioned route", "responses": {"200": {"description": ""}}}
		}
	},
	"components": {
		"schemas": {
			"DataImportRequest": {
				"type": "object",
				"properties": {
					"import_type": {"type": "string", "enum": ["endpoint", "file"], "description": "Tipo de importação: endpoint ou arquivo"},
					"endpoint_url": {"type": "string", "format": "uri"},
					"file": {"type": "string", "format": "binary"},
					"table_name": {"type": "string", "maxLength": 255}
				},
				"required": ["import_type", "table_name"]
			},
			"DataImportProcess": {
				"type": "object",
				"properties": {
					"id": {"type": "integer", "readOnly": true},
					"table_name": {"type": "string", "maxLength": 255},
					"record_count": {"type": "integer", "minimum": 0},
					"created_at": {"type": "string", "format": "date-time", "readOnly": true}
				},
				"required": ["id", "table_name", "created_at"]
			}
		}
	}
}`

func newTestParser(t *testing.T, baseURL string, selection *Selection) *SwaggerParser {
	t.Helper()
	cfg := &config.Config{API: config.APIConfig{BaseURL: baseURL}}
	return NewSwaggerParser(cfg, selection, nil)
}

func toolsByName(tools []*RouteTool) map[string]*RouteTool {
	out := make(map[string]*RouteTool, len(tools))
	for _, tool := range tools {
		out[tool.Tool.Name] = tool
	}
	return out
}

func TestExtractPathParams(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{name: "empty path", path: "", expected: nil},
		{name: "no params", path: "/data-import/imports/", expected: nil},
		{name: "one param", path: "/data-import/imports/{id}/", expected: []string{"id"}},
		{name: "two params", path: "/alice/conversations/{conversation_id}/messages/{id}/", expected: []string{"conversation_id", "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPathParams(tt.path))
		})
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "get_data_import_imports", toolName("GET", "/data-import/imports/"))
	assert.Equal(t, "patch_data_import_imports_id", toolName("PATCH", "/data-import/imports/{id}/"))
	assert.Equal(t, "get_users_me", toolName("GET", "/users/me/"))
}

func TestSwaggerParser_DataPortSchema(t *testing.T) {
	p := newTestParser(t, "http://localhost:8000/api/v1", nil)
	require.NoError(t, p.ParseReader(strings.NewReader(dataportSchema)))

	tools := toolsByName(p.GetRouteTools())
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{
		"get_data_import_imports",
		"post_data_import_imports",
		"get_data_import_imports_id",
		"patch_data_import_imports_id",
		"delete_data_import_imports_id",
	}, names, "auth and legacy routes are not exposed")

	t.Run("routes are relative to the base URL", func(t *testing.T) {
		route := tools["get_data_import_imports_id"].RouteConfig
		assert.Equal(t, "/data-import/imports/{id}/", route.Path)
		assert.Equal(t, http.MethodGet, route.Method)
		assert.Equal(t, "Retrieve an import process", route.Description)
	})

	t.Run("query parameters", func(t *testing.T) {
		tool := tools["get_data_import_imports"]
		assert.Equal(t, []string{"page", "status"}, tool.RouteConfig.QueryParams)

		page, ok := tool.Tool.InputSchema.Properties["page"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "number", page["type"])
		assert.Equal(t, "A page number within the paginated result set.", page["description"])

		status, ok := tool.Tool.InputSchema.Properties["status"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "string", status["type"])
		assert.ElementsMatch(t, []string{"pending", "processing", "completed", "failed"}, status["enum"])
		assert.NotContains(t, tool.Tool.InputSchema.Required, "status")
	})

	t.Run("path-level parameters", func(t *testing.T) {
		tool := tools["delete_data_import_imports_id"]
		assert.Contains(t, tool.Tool.InputSchema.Required, "id")
		id, ok := tool.Tool.InputSchema.Properties["id"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "A unique integer value identifying this import.", id["description"])
	})

	t.Run("request body prefers JSON content", func(t *testing.T) {
		tool := tools["post_data_import_imports"]
		assert.Contains(t, tool.Tool.Description, "Start a data import")

		body, ok := tool.Tool.InputSchema.Properties["body"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "object", body["type"])
		props, ok := body["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, props, "import_type")
		assert.Contains(t, props, "table_name")
		assert.ElementsMatch(t, []string{"import_type", "table_name"}, body["required"])
	})

	t.Run("read-only fields are not part of the body", func(t *testing.T) {
		body, ok := tools["patch_data_import_imports_id"].Tool.InputSchema.Properties["body"].(map[string]interface{})
		require.True(t, ok)
		props, ok := body["properties"].(map[string]interface{})
		require.True(t, ok)
		assert.NotContains(t, props, "id")
		assert.NotContains(t, props, "created_at")
		assert.Contains(t, props, "record_count")
		assert.Equal(t, []string{"table_name"}, body["required"])
	})

	t.Run("GET and DELETE carry no body", func(t *testing.T) {
		assert.NotContains(t, tools["get_data_import_imports"].Tool.InputSchema.Properties, "body")
		assert.NotContains(t, tools["delete_data_import_imports_id"].Tool.InputSchema.Properties, "body")
	})
}

func TestSwaggerParser_RelativeSchemaPaths(t *testing.T) {
	// Schemas that do not carry the base path are used as they are.
	schema := `{
		"openapi": "3.0.0",
		"info": {"title": "Test", "version": "1"},
		"paths": {
			"/users/me/": {"get": {"summary": "Current user", "responses": {"200": {"description": "OK"}}}},
			"/auth/logout/": {"post": {"responses": {"200": {"description": "OK"}}}}
		}
	}`
	p := newTestParser(t, "http://localhost:8000/api/v1", nil)
	require.NoError(t, p.ParseReader(strings.NewReader(schema)))

	tools := p.GetRouteTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "/users/me/", tools[0].RouteConfig.Path)
}

func TestParseOpenAPISpecs(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		wantErr   string
		wantTools int
	}{
		{
			name: "swagger 2.0 is converted",
			schema: `{
				"swagger": "2.0",
				"info": {"title": "Legacy", "version": "1"},
				"paths": {
					"/datasets": {
						"get": {
							"parameters": [{"name": "search", "in": "query", "type": "string"}],
							"responses": {"200": {"description": "OK"}}
						}
					}
				}
			}`,
			wantTools: 1,
		},
		{
			name: "yaml openapi 3",
			schema: "openapi: 3.0.3\n" +
				"info:\n  title: DataPort API\n  version: 1.0.0\n" +
				"paths:\n" +
				"  /api/v1/alice/chat/:\n" +
				"    post:\n" +
				"      summary: Ask the assistant\n" +
				"      responses:\n" +
				"        '200':\n" +
				"          description: ''\n",
			wantTools: 1,
		},
		{name: "invalid document", schema: `not json: [`, wantErr: "invalid OpenAPI document"},
		{name: "missing version", schema: `{"info": {"title": "x"}, "paths": {}}`, wantErr: "missing 'swagger' or 'openapi'"},
		{name: "unsupported openapi version", schema: `{"openapi": "4.0.0", "paths": {}}`, wantErr: "unsupported OpenAPI version"},
		{name: "unsupported swagger version", schema: `{"swagger": "1.2", "paths": {}}`, wantErr: "unsupported Swagger version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(t, "http://localhost:8000/api/v1", nil)
			err := p.ParseReader(strings.NewReader(tt.schema))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.GetRouteTools(), tt.wantTools)
		})
	}
}

func TestSwaggerParser_InitFromFileWithSelection(t *testing.T) {
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "schema.json")
	selectionFile := filepath.Join(dir, "selection.yaml")
	require.NoError(t, os.WriteFile(schemaFile, []byte(dataportSchema), 0o600))
	require.NoError(t, os.WriteFile(selectionFile, []byte(`
routes:
  - path: /data-import/imports/
    methods: [GET]
  - path: /data-import/imports/*/
descriptions:
  - path: /data-import/imports/
    updates:
      - method: GET
        new_description: List DataPort imports, newest first
exclude:
  - path: /data-import/imports/{id}/
    methods: [DELETE]
`), 0o600))

	p := newTestParser(t, "http://localhost:8000/api/v1", nil)
	require.NoError(t, p.Init(context.Background(), schemaFile, selectionFile))

	tools := toolsByName(p.GetRouteTools())
	assert.Len(t, tools, 3)
	assert.Contains(t, tools, "get_data_import_imports")
	assert.Contains(t, tools, "get_data_import_imports_id")
	assert.Contains(t, tools, "patch_data_import_imports_id")
	assert.Equal(t, "List DataPort imports, newest first", tools["get_data_import_imports"].RouteConfig.Description)
}

func TestSwaggerParser_InitFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/schema/", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/vnd.oai.openapi+json")
		_, _ = w.Write([]byte(dataportSchema))
	}))
	defer server.Close()

	cfg := &config.Config{API: config.APIConfig{BaseURL: server.URL + "/api/v1"}}
	fetcher := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		Config:  cfg,
		Builder: requester.NewHTTPRequestBuilder(cfg),
	})
	p := NewSwaggerParser(cfg, NewSelection(), fetcher)

	require.NoError(t, p.Init(context.Background(), cfg.API.SchemaLocation(), ""))
	assert.Len(t, p.GetRouteTools(), 5)
}

func TestSwaggerParser_InitErrors(t *testing.T) {
	p := newTestParser(t, "http://localhost:8000/api/v1", nil)

	err := p.Init(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "")
	assert.ErrorContains(t, err, "failed to read schema file")

	err = p.Init(context.Background(), "http://localhost:8000/api/schema/", "")
	assert.ErrorContains(t, err, "no HTTP client configured")

	err = p.Init(context.Background(), "schema.json", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not found")
}
