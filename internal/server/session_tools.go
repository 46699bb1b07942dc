package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/brizzai/dataport-cli/internal/server/tool"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	sessionStatusTool = "dataport_session_status"
	whoamiTool        = "dataport_whoami"
)

// registerSessionTools adds tools describing the session the server acts under.
func (s *Server) registerSessionTools() {
	s.mcp.AddTool(
		mcp.NewTool(sessionStatusTool,
			mcp.WithDescription("Reports whether the DataPort session is logged in, when the access token expires and which user it belongs to. Does not call the API."),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult(s.manager.Status())
		},
	)

	s.mcp.AddTool(
		mcp.NewTool(whoamiTool,
			mcp.WithDescription("Fetches the profile of the logged-in DataPort user from /users/me/."),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			user, err := s.manager.CurrentUser(ctx)
			if err != nil {
				if result, ok := tool.SessionErrorResult(err); ok {
					return result, nil
				}
				var statusErr *session.StatusError
				if errors.As(err, &statusErr) {
					return mcp.NewToolResultError(statusErr.Error()), nil
				}
				return nil, err
			}
			return jsonResult(user)
		},
	)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
