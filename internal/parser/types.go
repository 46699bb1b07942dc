package parser

import (
	"context"
	"io"

	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
)

// RouteTool combines a route configuration with its corresponding MCP tool
type RouteTool struct {
	RouteConfig *requester.RouteConfig
	Tool        mcp.Tool
}

// Parser turns the DataPort OpenAPI schema into MCP tools
type Parser interface {
	// Init loads the schema from a file path or URL and applies the selection file
	Init(ctx context.Context, source string, selectionFile string) error
	// ParseReader parses a schema from a reader
	ParseReader(reader io.Reader) error
	// GetRouteTools returns the parsed route tools
	GetRouteTools() []*RouteTool
}

// SchemaFetcher downloads a remote schema. *requester.HTTPRequester satisfies it.
type SchemaFetcher interface {
	Do(ctx context.Context, req *requester.Request, auth requester.AuthManager) (*requester.Response, error)
}

// SwaggerParser parses OpenAPI documents and generates route configurations
type SwaggerParser struct {
	doc        *openapi3.T
	routeTools []*RouteTool
	selection  *Selection
	fetcher    SchemaFetcher
	// basePath is the path component of the API base URL. Schema paths are
	// relative to the server root, routes are relative to the base URL.
	basePath string
}
