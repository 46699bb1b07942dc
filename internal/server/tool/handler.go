// Package tool provides tool handling functionality for the MCP server.
package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	notLoggedInMessage    = "Not logged in to DataPort. Run `dataport login` and call the tool again."
	sessionExpiredMessage = "The DataPort session has expired and could not be renewed. Run `dataport login` and call the tool again."
)

// Handler turns route executors into MCP tool handlers.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// SessionErrorResult maps session failures the user can fix by logging in to a
// tool error result the assistant can relay.
func SessionErrorResult(err error) (*mcp.CallToolResult, bool) {
	switch {
	case errors.Is(err, session.ErrNoAccessToken):
		return mcp.NewToolResultError(notLoggedInMessage), true
	case errors.Is(err, session.ErrSessionExpired):
		return mcp.NewToolResultError(sessionExpiredMessage), true
	}
	return nil, false
}

// CreateHandler creates a handler function for a specific tool.
func (h *Handler) CreateHandler(tool *mcp.Tool, executor requester.RouteExecutor) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := request.GetArguments()
		resp, err := executor(ctx, params)
		if err != nil {
			if result, ok := SessionErrorResult(err); ok {
				logger.Warn("Tool call needs a new login", zap.String("tool", tool.Name), zap.Error(err))
				return result, nil
			}
			return nil, fmt.Errorf("failed to execute request for tool %s: %w", tool.Name, err)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			logger.Debug("Tool call returned an HTTP error",
				zap.String("tool", tool.Name),
				zap.Int("status", resp.StatusCode),
				zap.String("request_id", resp.RequestID),
			)
			return mcp.NewToolResultError(fmt.Sprintf("HTTP Error %d: %s", resp.StatusCode, string(resp.Body))), nil
		}

		return mcp.NewToolResultText(string(resp.Body)), nil
	}
}
