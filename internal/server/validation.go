package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"discotheque/internal/library"

	"github.com/sirupsen/logrus"
)

const maxHistoryLimit = 500

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondWithValidationError sends a structured validation error response
func (ms *MusicServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	ms.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	result := ValidationResult{
		Valid:  false,
		Errors: errors,
	}

	ms.respondJSON(w, result)
}

// respondWithError sends a structured error response
func (ms *MusicServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	}

	ms.respondJSON(w, response)
}

// respondWithLibraryError maps browser errors onto HTTP statuses
func (ms *MusicServer) respondWithLibraryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrOutsideRoot):
		ms.respondWithError(w, r, http.StatusForbidden, "Path outside library", err)
	case errors.Is(err, library.ErrNotFound):
		ms.respondWithError(w, r, http.StatusNotFound, "Not found", err)
	default:
		ms.respondWithError(w, r, http.StatusInternalServerError, "Library error", err)
	}
}

// respondJSON encodes v; headers must already be written by the caller
func (ms *MusicServer) respondJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ms.logger.WithError(err).Error("Error encoding JSON response")
	}
}

// validateLimit parses an optional ?limit= value, falling back to def
func (ms *MusicServer) validateLimit(raw string, def int) (int, *ValidationError) {
	if raw == "" {
		if def <= 0 || def > maxHistoryLimit {
			def = maxHistoryLimit
		}
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:   "limit",
			Message: "Limit must be a valid integer",
			Code:    "INVALID_LIMIT_FORMAT",
		}
	}

	if limit <= 0 || limit > maxHistoryLimit {
		return 0, &ValidationError{
			Field:   "limit",
			Message: "Limit must be between 1 and 500",
			Code:    "INVALID_LIMIT_VALUE",
		}
	}

	return limit, nil
}
