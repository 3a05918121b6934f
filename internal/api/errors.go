package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/liveness-broker/internal/types"
	"github.com/liveness-broker/internal/verification"
)

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeDecodeFailed  = "DECODE_FAILED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondError sends an error response. Every error body carries
// success=false alongside the machine-readable code.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError maps lifecycle errors to HTTP responses. Input errors
// are 400, unknown codes 404 with the not_found sentinel, everything else a
// redacted 500.
func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, verification.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"status":  types.StatusNotFound,
		})
		return
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, svcErr.Message)
		return
	}

	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
}
