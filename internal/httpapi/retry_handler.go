package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/acme-edu/recording-pipeline/internal/retryengine"
)

// handleRetry implements POST /admin/recordings/retry (spec §6), binding
// the request body directly to retryengine.Request and returning its
// per-target []Result array.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req retryengine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid-body")
		return
	}

	results, err := s.retryEngine.Execute(r.Context(), req)
	if err != nil && results == nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
