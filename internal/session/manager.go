// Package session runs authenticated traffic against the DataPort API: it injects the
// stored access token, recovers from a 401 with a single refresh-and-retry, and ends
// the session when the refresh token is no longer accepted.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/tokens"
	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"
)

// Transport sends a single request. *requester.HTTPRequester is the production
// implementation.
type Transport interface {
	Do(ctx context.Context, req *requester.Request, auth requester.AuthManager) (*requester.Response, error)
}

// State is the externally visible session state.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Manager owns the session lifecycle. It is safe for concurrent use.
type Manager struct {
	transport Transport
	store     *tokens.Store
	inspector *tokens.Inspector
	api       config.APIConfig
	loginPath string

	refreshGroup singleflight.Group

	mu          sync.Mutex
	navigator   Navigator
	subscribers map[int]func(SessionEnded)
	nextSubID   int
}

type ManagerParams struct {
	fx.In

	Config    *config.Config
	Transport Transport
	Store     *tokens.Store
	Inspector *tokens.Inspector
	Navigator Navigator `optional:"true"`
}

func NewManager(params ManagerParams) *Manager {
	loginPath := params.Config.Session.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Manager{
		transport:   params.Transport,
		store:       params.Store,
		inspector:   params.Inspector,
		api:         params.Config.API,
		loginPath:   loginPath,
		navigator:   params.Navigator,
		subscribers: make(map[int]func(SessionEnded)),
	}
}

// Store exposes the token store backing the session.
func (m *Manager) Store() *tokens.Store {
	return m.store
}

// Inspector exposes the expiry inspector for the stored access token.
func (m *Manager) Inspector() *tokens.Inspector {
	return m.inspector
}

// State reports Authenticated while an access token is stored.
func (m *Manager) State() State {
	if _, ok := m.store.AccessToken(); ok {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Status summarizes the stored session without touching the network.
type Status struct {
	State           State            `json:"state" yaml:"state"`
	AccessExpiresAt *time.Time       `json:"access_expires_at,omitempty" yaml:"access_expires_at,omitempty"`
	ShouldRefresh   bool             `json:"should_refresh" yaml:"should_refresh"`
	HasRefreshToken bool             `json:"has_refresh_token" yaml:"has_refresh_token"`
	Persistent      bool             `json:"persistent" yaml:"persistent"`
	User            *tokens.UserData `json:"user,omitempty" yaml:"user,omitempty"`
}

func (m *Manager) Status() Status {
	status := Status{
		State:      m.State(),
		Persistent: m.store.Persistent(),
	}
	_, status.HasRefreshToken = m.store.RefreshToken()
	if user, ok := m.store.UserData(); ok {
		status.User = user
	}
	if status.State == StateAuthenticated && m.inspector != nil {
		if exp, ok := m.inspector.AccessExpiry(); ok {
			status.AccessExpiresAt = &exp
		}
		status.ShouldRefresh = m.inspector.ShouldRefresh()
	}
	return status
}

// Module provides the session manager
var Module = fx.Module("session",
	fx.Provide(
		func(r *requester.HTTPRequester) Transport { return r },
		NewManager,
	),
)
