package api

import (
	"net/http"
	"time"

	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/types"
	"github.com/liveness-broker/internal/verification"
)

// handleSaveSelfie handles POST /api/save-selfie - Register a new submission
func (s *Server) handleSaveSelfie(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelfieCode    string `json:"selfie_code"`
		EncryptedCode string `json:"encrypted_code"`
		ClientName    string `json:"client_name"`
		Source        string `json:"source"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body")
		return
	}

	if req.SelfieCode == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "selfie_code is required")
		return
	}
	if req.EncryptedCode == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "encrypted_code is required")
		return
	}

	sub, err := s.verification.CreateSubmission(r.Context(), &verification.CreateSubmissionInput{
		SelfieCode:    req.SelfieCode,
		EncryptedCode: req.EncryptedCode,
		ClientName:    req.ClientName,
		Source:        req.Source,
		IPAddress:     clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	redirectURL, err := s.provider.RedirectURL(sub.SelfieCode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to build redirect URL")
		return
	}

	// Park the browser session marker and the caller's encrypted payload;
	// each expires with its store's TTL.
	if err := s.sessions.Put(r.Context(), "session:"+sub.ID, sub.SelfieCode, 0); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("Failed to store session marker")
	}
	if err := s.data.Put(r.Context(), "data:"+sub.ID, sub.EncryptedCode, 0); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("Failed to store submission payload")
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"record_id":    sub.ID,
		"status":       sub.Status,
		"redirect_url": redirectURL,
	})
}

// handleCheckStatus handles GET /api/check-status - Poll submission status
func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	selfieCode := r.URL.Query().Get("selfie_code")
	if selfieCode == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "selfie_code is required")
		return
	}

	view, err := s.verification.CheckStatus(r.Context(), selfieCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"status":   view.Status,
		"attempts": view.Attempts,
	})
}

// handleGetResult handles GET /api/get-result - Fetch the minted result code
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	selfieCode := r.URL.Query().Get("selfie_code")
	if selfieCode == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "selfie_code is required")
		return
	}

	view, err := s.verification.GetResult(r.Context(), selfieCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !view.Completed {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":        false,
			"current_status": view.Status,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"result_code": view.ResultCode,
	})
}

// handleCallback handles GET /api/callback - Provider verdict callback.
// The id parameter carries the encrypted selfie code minted for the
// redirect URL; outcome defaults to success when a result code is present.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "id is required")
		return
	}

	selfieCode, err := s.provider.ResolveLinkID(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeDecodeFailed, "id cannot be decoded")
		return
	}

	resultCode := r.URL.Query().Get("result_code")
	outcome := types.CallbackOutcome(r.URL.Query().Get("outcome"))
	if outcome == "" {
		if resultCode != "" {
			outcome = types.OutcomeSuccess
		} else {
			outcome = types.OutcomeFailure
		}
	}

	sub, err := s.verification.ApplyCallback(r.Context(), selfieCode, &types.CallbackEvent{
		Outcome:    outcome,
		ResultCode: resultCode,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  sub.Status,
	})
}
