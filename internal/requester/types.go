package requester

import (
	"context"
	"net/http"
	"net/url"
)

// RouteExecutor is a function that can execute a route with params
type RouteExecutor func(ctx context.Context, params map[string]interface{}) (*Response, error)

// Request describes an outgoing API call. Body is held as bytes so the same Request
// can be sent more than once.
type Request struct {
	Method string
	// URL is absolute, or a path joined onto the configured API base URL.
	URL         string
	Query       url.Values
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	// RequestID is the X-Request-ID the request was sent with.
	RequestID string
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RouteConfig holds the configuration for a specific API route
type RouteConfig struct {
	Path        string            `json:"path" yaml:"path"`
	Method      string            `json:"method" yaml:"method"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryParams []string          `json:"query_params,omitempty" yaml:"query_params,omitempty"`
}
