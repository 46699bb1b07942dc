package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"go.uber.org/zap"
)

// DefaultLoginPath is where a user agent is sent once its session ends.
const DefaultLoginPath = "/login"

// EndReason says why a session ended.
type EndReason string

const (
	ReasonLogout        EndReason = "logout"
	ReasonRefreshFailed EndReason = "refresh_failed"
)

// SessionEnded is published every time the session is terminated.
type SessionEnded struct {
	Reason    EndReason
	LoginPath string
	At        time.Time
}

// Navigator is implemented by front ends able to send the user to the login entry
// point. Without one, termination only clears state and publishes SessionEnded.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// SetNavigator installs (or with nil, removes) the navigation capability.
func (m *Manager) SetNavigator(n Navigator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigator = n
}

// Subscribe registers fn for SessionEnded events and returns a func that removes it.
// fn runs synchronously on the goroutine that ended the session.
func (m *Manager) Subscribe(fn func(SessionEnded)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// EndSession clears every credential slot, publishes SessionEnded and, when a
// navigator is installed, sends it to the login path. Safe to call repeatedly.
func (m *Manager) EndSession(reason EndReason) {
	m.store.ClearAuthData()

	event := SessionEnded{Reason: reason, LoginPath: m.loginPath, At: time.Now()}

	m.mu.Lock()
	subs := make([]func(SessionEnded), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	nav := m.navigator
	m.mu.Unlock()

	logger.Info("session ended", zap.String("reason", string(reason)))
	for _, fn := range subs {
		fn(event)
	}
	if nav != nil {
		nav.Navigate(m.loginPath)
	}
}

// Logout revokes the refresh token server side when possible, then ends the session.
// Revocation is best effort: a failure is logged and local state is cleared anyway.
func (m *Manager) Logout(ctx context.Context) {
	access, hasAccess := m.store.AccessToken()
	refresh, hasRefresh := m.store.RefreshToken()
	if hasAccess && hasRefresh {
		m.revoke(ctx, access, refresh)
	}
	m.EndSession(ReasonLogout)
}

func (m *Manager) revoke(ctx context.Context, access, refresh string) {
	body, err := json.Marshal(refreshRequest{Refresh: refresh})
	if err != nil {
		return
	}
	resp, err := m.transport.Do(ctx, &requester.Request{
		Method: http.MethodPost,
		URL:    m.api.LogoutPath,
		Body:   body,
	}, requester.BearerAuth(access))
	if err != nil {
		logger.Warn("server logout failed", zap.Error(err))
		return
	}
	if !resp.IsSuccess() {
		logger.Warn("server logout rejected", zap.Int("status", resp.StatusCode), zap.String("request_id", resp.RequestID))
	}
}
