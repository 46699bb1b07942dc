package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/google/uuid"
)

// HTTPRequestBuilder turns Requests into *http.Request values against the API base URL.
type HTTPRequestBuilder struct {
	baseURL string
	headers map[string]string
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(cfg *config.Config) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		headers: cfg.API.Headers,
	}
}

// ResolveURL joins a relative path onto the base URL and leaves absolute URLs alone.
func (b *HTTPRequestBuilder) ResolveURL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if target == "" {
		return b.baseURL
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return b.baseURL + target
}

// BuildRequest creates the HTTP request for req. Configured headers are applied first,
// then the caller's, then auth, so auth always has the last word on Authorization.
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, req *Request, auth AuthManager) (*http.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	target := b.ResolveURL(req.URL)
	if len(req.Query) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", target, err)
		}
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	for key, value := range b.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	} else if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}

	if auth != nil {
		if err := auth.ApplyAuth(httpReq); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	return httpReq, nil
}

// BuildRouteRequest maps tool parameters onto a route: {name} path placeholders,
// declared query parameters, and a JSON "body" for methods that carry one.
func (b *HTTPRequestBuilder) BuildRouteRequest(route *RouteConfig, params map[string]interface{}) (*Request, error) {
	if route == nil {
		return nil, fmt.Errorf("route config is nil")
	}

	path := route.Path
	for key, value := range params {
		placeholder := fmt.Sprintf("{%s}", key)
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(fmt.Sprintf("%v", value)))
		}
	}
	if strings.Contains(path, "{") {
		return nil, fmt.Errorf("missing path parameter for %s", path)
	}

	req := &Request{
		Method:  route.Method,
		URL:     path,
		Headers: make(map[string]string, len(route.Headers)),
	}
	for k, v := range route.Headers {
		req.Headers[k] = v
	}

	for _, name := range route.QueryParams {
		if value, ok := params[name]; ok && value != nil {
			if req.Query == nil {
				req.Query = url.Values{}
			}
			req.Query.Set(name, fmt.Sprintf("%v", value))
		}
	}

	switch route.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if body, ok := params["body"]; ok {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			req.Body = data
			req.ContentType = "application/json"
		}
	}

	return req, nil
}
