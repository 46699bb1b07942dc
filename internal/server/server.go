// Package server exposes the DataPort API to MCP clients. Every tool call runs
// through the session manager, so tools share the CLI's login and refresh logic.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/server/handler"
	"github.com/brizzai/dataport-cli/internal/server/tool"
	"github.com/brizzai/dataport-cli/internal/session"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server is the MCP server. It supports SSE, streamable HTTP and STDIO.
type Server struct {
	config  *config.Config
	parser  parser.Parser
	mcp     *mcpserver.MCPServer
	manager *session.Manager
	builder *requester.HTTPRequestBuilder
	handler *handler.Handler
	tool    *tool.Handler
}

type ServerParams struct {
	fx.In

	Config  *config.Config
	Parser  parser.Parser
	Manager *session.Manager
	Builder *requester.HTTPRequestBuilder
}

func NewServer(params ServerParams) *Server {
	mcpServer := mcpserver.NewMCPServer(
		params.Config.Server.Name,
		params.Config.Server.Version,
	)

	return &Server{
		config:  params.Config,
		parser:  params.Parser,
		mcp:     mcpServer,
		manager: params.Manager,
		builder: params.Builder,
		handler: handler.NewHandler(params.Manager),
		tool:    tool.NewHandler(),
	}
}

// SchemaSource prefers a local schema file over the live API schema.
func (s *Server) SchemaSource() string {
	if s.config.Server.SchemaFile != "" {
		return s.config.Server.SchemaFile
	}
	return s.config.API.SchemaLocation()
}

// setupTools registers the session tools and one tool per selected API route.
func (s *Server) setupTools(ctx context.Context) error {
	s.registerSessionTools()

	if err := s.parser.Init(ctx, s.SchemaSource(), s.config.Server.SelectionFile); err != nil {
		return fmt.Errorf("failed to initialize parser: %w", err)
	}

	for _, route := range s.parser.GetRouteTools() {
		t := route.Tool
		executor := s.manager.RouteExecutor(s.builder, route.RouteConfig)
		s.mcp.AddTool(t, s.tool.CreateHandler(&t, executor))
	}
	logger.Info("Registered API tools", zap.Int("count", len(s.parser.GetRouteTools())))
	return nil
}

func (s *Server) ServeSSE(ctx context.Context) error {
	sseServer := mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)),
	)
	return s.serveHTTP(ctx, sseServer, "SSE")
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, mcpHandler http.Handler, mode string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler.CreateHTTPHandler(mcpHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start loads the tools and serves in the configured mode until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting MCP server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
		zap.String("state", string(s.manager.State())),
	)

	if err := s.setupTools(ctx); err != nil {
		return err
	}

	switch s.config.Server.Mode {
	case config.ServerModeSSE:
		return s.ServeSSE(ctx)
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO:
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		NewServer,
	),
)
