// Package utils holds small HTTP helpers shared by the server handlers.
package utils

import (
	"encoding/json"
	"net/http"

	"github.com/brizzai/dataport-cli/internal/logger"
	"go.uber.org/zap"
)

// WriteJSON writes data as a 200 JSON response
func WriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// WriteError writes a JSON error body in the shape DataPort uses
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":  code,
		"detail": message,
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}
