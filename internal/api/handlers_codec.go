package api

import (
	"net/http"
	"time"
)

// handleTest handles GET /api/test - Liveness probe for the API surface
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "liveness broker api is reachable",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleEncrypt handles POST /api/encrypt - Encrypt a caller payload
func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body")
		return
	}

	if req.Data == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "data is required")
		return
	}

	encrypted, err := s.codec.Encrypt(req.Data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Encryption failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"encrypted": encrypted,
	})
}

// handleDebugEncrypt handles GET /api/debug-encrypt - Codec self check.
// Encrypts a fixed sample and decrypts it again so operators can confirm
// the configured key round-trips.
func (s *Server) handleDebugEncrypt(w http.ResponseWriter, r *http.Request) {
	const sample = "liveness-broker-self-check"

	encrypted, err := s.codec.Encrypt(sample)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Encryption failed")
		return
	}

	decrypted, err := s.codec.Decrypt(encrypted)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Decryption failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"sample":    sample,
		"encrypted": encrypted,
		"match":     decrypted == sample,
	})
}
