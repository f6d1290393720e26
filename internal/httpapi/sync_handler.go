package httpapi

import (
	"encoding/json"
	"net/http"
)

// handleSync implements POST /admin/sync/recordings (spec §6).
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid-body")
		return
	}

	summary, err := s.syncer.Sync(r.Context(), req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
