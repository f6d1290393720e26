package httpapi

import (
	"net/http"
	"strconv"

	"github.com/acme-edu/recording-pipeline/internal/store"
)

const defaultPendingLimit = 50

// handlePending implements GET /admin/recordings/pending (spec §6).
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	onlyWithoutArtifact := q.Get("onlyWithoutArtifact") == "true"

	limit := defaultPendingLimit
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recordings, err := s.store.ListPending(r.Context(), onlyWithoutArtifact, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if recordings == nil {
		recordings = []*store.Recording{}
	}

	writeJSON(w, http.StatusOK, recordings)
}
