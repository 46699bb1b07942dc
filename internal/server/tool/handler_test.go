package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestCreateHandler(t *testing.T) {
	testTool := mcp.NewTool("get_data_import_imports")

	tests := []struct {
		name      string
		resp      *requester.Response
		err       error
		wantErr   bool
		wantIsErr bool
		wantText  string
	}{
		{
			name:     "success body is returned as text",
			resp:     &requester.Response{StatusCode: http.StatusOK, Body: []byte(`{"count":0,"results":[]}`)},
			wantText: `{"count":0,"results":[]}`,
		},
		{
			name:      "http error becomes a tool error",
			resp:      &requester.Response{StatusCode: http.StatusForbidden, Body: []byte(`{"detail":"forbidden"}`)},
			wantIsErr: true,
			wantText:  `HTTP Error 403: {"detail":"forbidden"}`,
		},
		{
			name:      "not logged in",
			err:       session.ErrNoAccessToken,
			wantIsErr: true,
			wantText:  notLoggedInMessage,
		},
		{
			name:      "session expired",
			err:       fmt.Errorf("wrapped: %w", session.ErrSessionExpired),
			wantIsErr: true,
			wantText:  sessionExpiredMessage,
		},
		{
			name:    "transport failure is a protocol error",
			err:     errors.New("connection refused"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotParams map[string]interface{}
			executor := func(ctx context.Context, params map[string]interface{}) (*requester.Response, error) {
				gotParams = params
				return tt.resp, tt.err
			}

			request := mcp.CallToolRequest{}
			request.Params.Name = testTool.Name
			request.Params.Arguments = map[string]interface{}{"status": "completed"}

			result, err := NewHandler().CreateHandler(&testTool, executor)(context.Background(), request)
			assert.Equal(t, "completed", gotParams["status"])
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), testTool.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIsErr, result.IsError)
			assert.Equal(t, tt.wantText, resultText(t, result))
		})
	}
}

func TestSessionErrorResult(t *testing.T) {
	_, ok := SessionErrorResult(errors.New("other"))
	assert.False(t, ok)

	result, ok := SessionErrorResult(session.ErrSessionExpired)
	require.True(t, ok)
	assert.True(t, result.IsError)
}
