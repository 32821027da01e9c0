// Package handler exposes the HTTP API for managing rules, watchlists,
// preferences, and notification history.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dealradar/backend/internal/apperror"
)

// ErrorResponse represents a JSON error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError maps service-layer errors onto HTTP responses,
// falling back to a generic 500 for anything that is not an AppError.
func respondServiceError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		respondJSON(w, appErr.StatusCode, ErrorResponse{
			Error: appErr.Message,
			Field: appErr.Field,
		})
		return
	}
	respondError(w, http.StatusInternalServerError, "an internal error occurred")
}

// queryInt reads an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
