// Package handler provides HTTP request handling for the MCP server.
package handler

import (
	"net/http"
	"time"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/brizzai/dataport-cli/internal/utils"
	"go.uber.org/zap"
)

// StatusPath serves the session summary for probes and debugging.
const StatusPath = "/healthz"

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	manager *session.Manager
}

func NewHandler(manager *session.Manager) *Handler {
	return &Handler{manager: manager}
}

// CreateHTTPHandler mounts the MCP transport at / and the session status at
// StatusPath, both behind request logging.
func (h *Handler) CreateHTTPHandler(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(StatusPath, h.handleStatus)
	mux.Handle("/", mcpHandler)
	return LoggingMiddleware(mux)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	status := h.manager.Status()
	// the user profile stays out of an unauthenticated endpoint
	status.User = nil
	utils.WriteJSON(w, status)
}

// LoggingMiddleware logs information about each incoming request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debug("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
