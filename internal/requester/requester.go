package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPRequester builds and sends API requests
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
}

type HTTPRequesterParams struct {
	fx.In

	Config  *config.Config
	Builder *HTTPRequestBuilder
}

// NewHTTPRequester creates a new HTTPRequester. A zero api.timeout leaves the
// transport's defaults in charge.
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	return &HTTPRequester{
		client: &http.Client{
			Timeout: params.Config.API.Timeout,
		},
		builder: params.Builder,
	}
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// SetHTTPClient swaps the underlying client.
func (r *HTTPRequester) SetHTTPClient(client *http.Client) {
	r.client = client
}

// Builder exposes the request builder, for callers that map routes to requests.
func (r *HTTPRequester) Builder() *HTTPRequestBuilder {
	return r.builder
}

// Do sends req with auth applied and returns the fully read response. Non-2xx
// statuses are not errors; err is only set when no response was received.
func (r *HTTPRequester) Do(ctx context.Context, req *Request, auth AuthManager) (*Response, error) {
	httpReq, err := r.builder.BuildRequest(ctx, req, auth)
	if err != nil {
		return nil, err
	}

	resp, err := r.execute(httpReq)
	if err != nil {
		logger.Error("failed to execute request",
			zap.String("method", httpReq.Method),
			zap.String("url", httpReq.URL.Redacted()),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Debug("request completed",
		zap.String("method", httpReq.Method),
		zap.String("url", httpReq.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", resp.RequestID),
	)
	return resp, nil
}

func (r *HTTPRequester) execute(httpReq *http.Request) (*Response, error) {
	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			logger.Debug("failed to close response body", zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       bodyBytes,
		Headers:    httpResp.Header,
		RequestID:  httpReq.Header.Get(RequestIDHeader),
	}, nil
}
