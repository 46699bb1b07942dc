package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"go.uber.org/zap"
)

// Do sends req with the stored access token and runs at most one refresh per call.
// A 401 triggers that refresh: with a new token the request is sent once more and
// that response is returned whatever its status; without one the session is ended
// and ErrSessionExpired returned. Every other response is returned unchanged.
//
// With proactive refresh on, a token whose exp is readable and within the buffer is
// refreshed before the first send. That counts as the call's refresh, so a 401 that
// follows is not refreshed again.
func (m *Manager) Do(ctx context.Context, req *requester.Request) (*requester.Response, error) {
	access, ok := m.store.AccessToken()
	if !ok {
		return nil, ErrNoAccessToken
	}

	// attempted and renewed record the proactive refresh, if any
	attempted, renewed := false, false
	if m.api.ProactiveRefresh && m.inspector != nil && m.inspector.NearExpiry(access) {
		if _, hasRefresh := m.store.RefreshToken(); hasRefresh {
			logger.Debug("access token about to expire, refreshing before request")
			attempted = true
			if fresh, ok := m.refreshOnce(ctx, access); ok {
				access, renewed = fresh, true
			} else if _, hasRefresh := m.store.RefreshToken(); !hasRefresh {
				return nil, m.refreshFailed(ctx)
			}
		}
	}

	resp, err := m.transport.Do(ctx, req, requester.BearerAuth(access))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if attempted {
		if renewed {
			return resp, nil
		}
		return nil, m.refreshFailed(ctx)
	}

	logger.Info("access token rejected, attempting refresh",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.String("request_id", resp.RequestID),
	)

	fresh, ok := m.refreshOnce(ctx, access)
	if !ok {
		return nil, m.refreshFailed(ctx)
	}

	return m.transport.Do(ctx, req, requester.BearerAuth(fresh))
}

// refreshFailed ends the session after a failed refresh. A caller that gave up keeps
// the session unless the refresh token was rejected and the credentials are gone.
func (m *Manager) refreshFailed(ctx context.Context) error {
	if _, ok := m.store.RefreshToken(); ok {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	m.EndSession(ReasonRefreshFailed)
	return ErrSessionExpired
}

// Request is a convenience over Do that JSON-encodes body when it is not nil.
func (m *Manager) Request(ctx context.Context, method, path string, body interface{}) (*requester.Response, error) {
	req := &requester.Request{Method: method, URL: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = data
		req.ContentType = "application/json"
	}
	return m.Do(ctx, req)
}

// RouteExecutor binds an API route to the authenticated executor.
func (m *Manager) RouteExecutor(builder *requester.HTTPRequestBuilder, route *requester.RouteConfig) requester.RouteExecutor {
	return func(ctx context.Context, params map[string]interface{}) (*requester.Response, error) {
		req, err := builder.BuildRouteRequest(route, params)
		if err != nil {
			return nil, err
		}
		logger.Info("request route", zap.String("method", route.Method), zap.String("path", req.URL))
		return m.Do(ctx, req)
	}
}
