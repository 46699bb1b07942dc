package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/tokens"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
	User    *tokens.UserData `json:"user"`
}

// Login authenticates with email and password and stores the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (*tokens.UserData, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := m.transport.Do(ctx, &requester.Request{
		Method: http.MethodPost,
		URL:    m.api.LoginPath,
		Body:   body,
	}, requester.NoAuth{})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, &StatusError{Endpoint: "login", StatusCode: resp.StatusCode, Body: resp.Body})
	case !resp.IsSuccess():
		return nil, &StatusError{Endpoint: "login", StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var out loginResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if out.Access == "" || out.Refresh == "" {
		return nil, errors.New("login response is missing tokens")
	}

	// a new principal never inherits the previous one's cached profile
	m.store.ClearAuthData()
	m.store.SetTokens(out.Access, out.Refresh)
	if out.User != nil {
		m.store.SetUserData(*out.User)
	}

	logger.Info("logged in", zap.String("email", email), logger.Token("access", out.Access))
	return out.User, nil
}

// CurrentUser fetches the authenticated user's profile and caches it.
func (m *Manager) CurrentUser(ctx context.Context) (*tokens.UserData, error) {
	resp, err := m.Do(ctx, &requester.Request{Method: http.MethodGet, URL: m.api.MePath})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Endpoint: "current user", StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var user tokens.UserData
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	m.store.SetUserData(user)
	return &user, nil
}
