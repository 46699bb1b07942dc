package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/requester"
)

// Probe selects a DataPort health endpoint.
type Probe string

const (
	ProbeBasic     Probe = "basic"
	ProbeLiveness  Probe = "live"
	ProbeReadiness Probe = "ready"
	ProbeDetailed  Probe = "detailed"
)

var probePaths = map[Probe]string{
	ProbeBasic:     "/health/",
	ProbeLiveness:  "/health/live/",
	ProbeReadiness: "/health/ready/",
	ProbeDetailed:  "/health/detailed/",
}

// HealthStatus is the outcome of a health probe.
type HealthStatus struct {
	Probe      Probe                  `json:"probe" yaml:"probe"`
	URL        string                 `json:"url" yaml:"url"`
	StatusCode int                    `json:"status_code" yaml:"status_code"`
	Healthy    bool                   `json:"healthy" yaml:"healthy"`
	Details    map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Health calls an unauthenticated health endpoint. Non-2xx answers are reported as
// unhealthy, not as errors.
func (m *Manager) Health(ctx context.Context, probe Probe) (*HealthStatus, error) {
	path, ok := probePaths[probe]
	if !ok {
		return nil, fmt.Errorf("unknown health probe %q", probe)
	}

	target := m.api.HealthBaseURL() + path
	resp, err := m.transport.Do(ctx, &requester.Request{Method: http.MethodGet, URL: target}, requester.NoAuth{})
	if err != nil {
		return nil, fmt.Errorf("health probe %s: %w", probe, err)
	}

	status := &HealthStatus{
		Probe:      probe,
		URL:        target,
		StatusCode: resp.StatusCode,
		Healthy:    resp.IsSuccess(),
	}
	var details map[string]interface{}
	if err := json.Unmarshal(resp.Body, &details); err == nil {
		status.Details = details
	}
	return status, nil
}
