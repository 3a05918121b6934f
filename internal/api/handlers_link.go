package api

import (
	"net/http"
	"time"

	"github.com/liveness-broker/internal/types"
)

// handleSelfieLink handles GET /selfie/link - Resolve an encrypted link id
// for a browser session. When the provider appended a result_code to the
// link, the callback is applied before answering so a completed verdict is
// never lost to a missed callback request.
func (s *Server) handleSelfieLink(w http.ResponseWriter, r *http.Request) {
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

	if resultCode := r.URL.Query().Get("result_code"); resultCode != "" {
		event := &types.CallbackEvent{
			Outcome:    types.OutcomeSuccess,
			ResultCode: resultCode,
			ReceivedAt: time.Now(),
		}
		if _, err := s.verification.ApplyCallback(r.Context(), selfieCode, event); err != nil {
			respondServiceError(w, err)
			return
		}
	}

	view, err := s.verification.CheckStatus(r.Context(), selfieCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	redirectURL, err := s.provider.RedirectURL(selfieCode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to build redirect URL")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"status":       view.Status,
		"redirect_url": redirectURL,
	})
}
