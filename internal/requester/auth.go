package requester

import (
	"net/http"
)

const (
	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"
	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "
	// RequestIDHeader correlates a request with DataPort server logs.
	RequestIDHeader = "X-Request-ID"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// BearerAuth presents an access token. It overrides any Authorization header already
// on the request.
type BearerAuth string

func (b BearerAuth) ApplyAuth(req *http.Request) error {
	req.Header.Set(AuthHeaderName, AuthHeaderPrefix+string(b))
	return nil
}

// NoAuth sends the request as is.
type NoAuth struct{}

func (NoAuth) ApplyAuth(*http.Request) error {
	return nil
}
