package httpapi

import (
	"net/http"

	"github.com/Nisrin888/blinder/internal/storage"
)

func (s *Server) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.Store.GetSession(r.Context(), sessionID); err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	summary, err := s.Audit.Summarize(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not summarize audit trail.")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleAuditExport serves the full audit report as a downloadable JSON
// attachment. It is deliberately an export of record, not a paginated
// API resource, so it always returns the whole session at once.
func (s *Server) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.Store.GetSession(r.Context(), sessionID); err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	report, err := s.Audit.Export(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not export audit trail.")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-"+sessionID+".json\"")
	writeJSON(w, http.StatusOK, report)
	if s.Metrics != nil {
		s.Metrics.AuditExportsServed.Add(1)
	}
}
