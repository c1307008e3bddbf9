package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Nisrin888/blinder/internal/storage"
)

type sessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toSessionResponse(s *storage.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		Domain:    s.Domain,
		CreatedAt: s.CreatedAt.Format(rfc3339),
		UpdatedAt: s.UpdatedAt.Format(rfc3339),
	}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	salt, err := randomSalt()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Something went wrong processing your request.")
		return
	}
	sess, err := s.Store.CreateSession(r.Context(), salt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not create session.")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not list sessions.")
		return
	}
	out := make([]sessionResponse, len(sessions))
	for i := range sessions {
		out[i] = toSessionResponse(&sessions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.Store.GetSession(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load session.")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Title string `json:"title"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}
	if err := s.Store.UpdateSessionTitle(r.Context(), id, req.Title); err != nil {
		writeError(w, http.StatusInternalServerError, "Could not update session.")
		return
	}
	sess, err := s.Store.GetSession(r.Context(), id)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load session.")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Store.DeleteSession(r.Context(), id); err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not delete session.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
