package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAccessToken is returned when an authenticated request is attempted
	// without a stored access token.
	ErrNoAccessToken = errors.New("no access token: log in first")
	// ErrSessionExpired is returned when a 401 could not be recovered by refreshing.
	// The session has been terminated by the time it is returned.
	ErrSessionExpired = errors.New("session expired: log in again")
	// ErrInvalidCredentials is returned by Login when the server rejects the
	// email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// StatusError reports an unexpected HTTP status from an endpoint this package
// interprets itself (login, current user).
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, body)
}
