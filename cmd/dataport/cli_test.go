package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func mintAccess(t *testing.T, id int) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": "access",
		"user_id":    1,
		"jti":        fmt.Sprintf("access-%d", id),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

// fakeDataPort mimics the auth, user and health endpoints of a DataPort server.
type fakeDataPort struct {
	t *testing.T

	mu           sync.Mutex
	access       string
	refresh      string
	issued       int
	refreshCalls int
	logoutCalls  int
}

func (f *fakeDataPort) issue() string {
	f.issued++
	f.access = mintAccess(f.t, f.issued)
	return f.access
}

func (f *fakeDataPort) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
}

// expireAccess makes the server reject the current access token.
func (f *fakeDataPort) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired"
}

func (f *fakeDataPort) revokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = "revoked"
}

func (f *fakeDataPort) calls() (refresh, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls, f.logoutCalls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeDataPort) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "ana@example.com" || req.Password != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`)
			return
		}
		f.mu.Lock()
		access := f.issue()
		f.refresh = "R1"
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"access":%q,"refresh":"R1","user":{"id":1,"email":"ana@example.com","first_name":"Ana","last_name":"Lima"}}`, access))
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Refresh string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshCalls++
		if req.Refresh != f.refresh {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Token is blacklisted","code":"token_not_valid"}`)
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"access":%q}`, f.issue()))
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logoutCalls++
		f.mu.Unlock()
		w.WriteHeader(http.StatusResetContent)
	})
	mux.HandleFunc("/api/v1/users/me/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":1,"email":"ana@example.com","first_name":"Ana","last_name":"Lima","profile_type":"analyst"}`)
	})
	mux.HandleFunc("/api/v1/data-import/imports/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`)
			return
		}
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			writeJSON(w, http.StatusBadRequest, fmt.Sprintf(`{"echo":%s}`, body))
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"count":0,"status":%q,"results":[]}`, r.URL.Query().Get("status")))
	})
	mux.HandleFunc("/health/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
	})
	mux.HandleFunc("/health/ready/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"status":"unhealthy","database":"down"}`)
	})
	return mux
}

type cli struct {
	t    *testing.T
	api  *fakeDataPort
	args []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	api := &fakeDataPort{t: t}
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("DATAPORT_STORAGE_FILE_PATH", filepath.Join(dir, "credentials.json"))
	t.Setenv("DATAPORT_LOGGING_LEVEL", "error")

	return &cli{t: t, api: api, args: []string{"--api-url", server.URL + "/api/v1", "--storage", "file"}}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, c.args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (c *cli) status() map[string]interface{} {
	c.t.Helper()
	out, err := c.run("", "status", "-o", "json")
	require.NoError(c.t, err)
	var status map[string]interface{}
	require.NoError(c.t, json.Unmarshal([]byte(out), &status))
	return status
}

func TestCLI_SessionLifecycle(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "anonymous", c.status()["state"])

	_, err := c.run("wrong\n", "login", "--email", "ana@example.com", "--password-stdin")
	assert.ErrorContains(t, err, "invalid email or password")

	out, err := c.run("s3cret\n", "login", "--email", "ana@example.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in to DataPort")
	assert.Contains(t, out, "ana@example.com")

	status := c.status()
	assert.Equal(t, "authenticated", status["state"])
	assert.Equal(t, true, status["has_refresh_token"])
	assert.Equal(t, false, status["should_refresh"])
	assert.NotEmpty(t, status["access_expires_at"])

	out, err = c.run("", "whoami", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "email: ana@example.com")
	assert.Contains(t, out, "profile_type: analyst")

	t.Run("rejected access token is refreshed", func(t *testing.T) {
		c.api.expireAccess()
		out, err := c.run("", "request", "get", "/data-import/imports/", "-q", "status=completed")
		require.NoError(t, err)
		assert.Contains(t, out, `"status": "completed"`)
		refreshCalls, _ := c.api.calls()
		assert.Equal(t, 1, refreshCalls)
	})

	t.Run("error responses are returned as is", func(t *testing.T) {
		out, err := c.run("", "request", "POST", "/data-import/imports/", "-d", `{"name":"q3"}`, "-o", "json")
		assert.ErrorContains(t, err, "status 400")
		var resp apiResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, 400, resp.Status)
		assert.Equal(t, map[string]interface{}{"echo": map[string]interface{}{"name": "q3"}}, resp.Body)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("explicit refresh", func(t *testing.T) {
		out, err := c.run("", "refresh")
		require.NoError(t, err)
		assert.Contains(t, out, "Access token refreshed")
		refreshCalls, _ := c.api.calls()
		assert.Equal(t, 2, refreshCalls)
	})

	t.Run("revoked refresh token ends the session", func(t *testing.T) {
		c.api.expireAccess()
		c.api.revokeRefresh()

		_, err := c.run("", "whoami")
		assert.ErrorContains(t, err, "session expired")
		assert.Equal(t, "anonymous", c.status()["state"])

		_, err = c.run("", "whoami")
		assert.ErrorContains(t, err, "dataport login")
	})

	t.Run("logout", func(t *testing.T) {
		_, err := c.run("s3cret\n", "login", "--email", "ana@example.com", "--password-stdin")
		require.NoError(t, err)

		out, err := c.run("", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Logged out")
		_, logoutCalls := c.api.calls()
		assert.Equal(t, 1, logoutCalls)
		assert.Equal(t, "anonymous", c.status()["state"])

		out, err = c.run("", "logout")
		require.NoError(t, err)
		assert.Contains(t, out, "Not logged in")
		_, logoutCalls = c.api.calls()
		assert.Equal(t, 1, logoutCalls)
	})
}

func TestCLI_LoginRequiresEmailWithoutTerminal(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("s3cret\n", "login")
	assert.ErrorContains(t, err, "--email is required")
}

func TestCLI_Health(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy (200)")

	out, err = c.run("", "health", "--probe", "ready", "-o", "json")
	assert.ErrorContains(t, err, "ready probe returned status 503")
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, false, status["healthy"])

	_, err = c.run("", "health", "--probe", "bogus")
	assert.ErrorContains(t, err, "unknown health probe")
}

func TestCLI_InvalidOutputFormat(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "status", "-o", "xml")
	assert.ErrorContains(t, err, `unsupported output format "xml"`)
}
