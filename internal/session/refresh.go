package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"go.uber.org/zap"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Refresh exchanges the stored refresh token for a new access token. Concurrent
// callers share a single network call. ok is false when there is no refresh token,
// the server rejected it (all credentials are then cleared), the response carried no
// access token (credentials are left as they were) or the call failed.
func (m *Manager) Refresh(ctx context.Context) (string, bool) {
	return m.refreshOnce(ctx, "")
}

// refreshOnce runs at most one refresh at a time. When rejected is set and the stored
// access token has already moved on from it, another caller refreshed in the meantime
// and the stored token is returned without a network call.
func (m *Manager) refreshOnce(ctx context.Context, rejected string) (string, bool) {
	v, _, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		if rejected != "" {
			if current, ok := m.store.AccessToken(); ok && current != rejected {
				logger.Debug("access token already refreshed", logger.Token("access", current))
				return current, nil
			}
		}
		// the flight outlives whichever caller started it
		return m.refresh(context.WithoutCancel(ctx)), nil
	})
	access, _ := v.(string)
	return access, access != ""
}

func (m *Manager) refresh(ctx context.Context) string {
	refreshToken, ok := m.store.RefreshToken()
	if !ok {
		logger.Debug("no refresh token stored, skipping refresh")
		return ""
	}

	body, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		logger.Warn("failed to encode refresh request", zap.Error(err))
		return ""
	}

	resp, err := m.transport.Do(ctx, &requester.Request{
		Method: http.MethodPost,
		URL:    m.api.RefreshPath,
		Body:   body,
	}, requester.NoAuth{})
	if err != nil {
		logger.Warn("token refresh failed", zap.Error(err))
		return ""
	}

	if !resp.IsSuccess() {
		logger.Warn("refresh token rejected, clearing credentials",
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", resp.RequestID),
		)
		m.store.ClearAuthData()
		return ""
	}

	var out refreshResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		logger.Warn("failed to decode refresh response", zap.Error(err), zap.String("request_id", resp.RequestID))
		return ""
	}
	if out.Access == "" {
		logger.Warn("refresh response has no access token, keeping current credentials",
			zap.String("request_id", resp.RequestID),
		)
		return ""
	}

	// a rotated refresh token is stored too; without rotation the old one stays
	m.store.SetTokens(out.Access, out.Refresh)
	logger.Info("access token refreshed", logger.Token("access", out.Access))
	return out.Access
}
