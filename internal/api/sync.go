package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/intake/internal/config"
)

func (s *Server) runSync(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusInternalServerError, s.syncUnavailable)
		return
	}

	// The run is detached from the request so a client hang-up cannot abandon it partway.
	report, err := s.sync.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			writeError(w, http.StatusInternalServerError, NotConfiguredElevenLabs)
			return
		}
		s.logger.Error("sync failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to sync with ElevenLabs",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusInternalServerError, s.syncUnavailable)
		return
	}

	status, err := s.status.Status(r.Context())
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			writeError(w, http.StatusInternalServerError, NotConfiguredElevenLabs)
			return
		}
		s.logger.Error("sync status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to fetch ElevenLabs status",
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, status)
}
