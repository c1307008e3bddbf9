package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type modelInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Available     bool   `json:"available"`
	ContextWindow int    `json:"context_window"`
}

// handleListModels reports which providers are configured well enough to
// use, without leaking API keys.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config
	models := []modelInfo{
		{Provider: "ollama", Model: cfg.OllamaModel, Available: cfg.OllamaBaseURL != ""},
		{Provider: "openai", Model: cfg.OpenAIModel, Available: cfg.OpenAIAPIKey != ""},
		{Provider: "anthropic", Model: cfg.AnthropicModel, Available: cfg.AnthropicAPIKey != ""},
	}
	writeJSON(w, http.StatusOK, models)
}

type settingsResponse struct {
	DefaultProvider string  `json:"default_provider"`
	PIIThreshold    float64 `json:"pii_confidence_threshold"`
	ContextWindow   float64 `json:"context_window_threshold"`
	ChunkSize       int     `json:"chunk_size"`
	ChunkOverlap    int     `json:"chunk_overlap"`
	RAGTopK         int     `json:"rag_top_k"`
	RRFK            int     `json:"rrf_k"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSettings())
}

func (s *Server) currentSettings() settingsResponse {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return settingsResponse{
		DefaultProvider: s.DefaultProvider,
		PIIThreshold:    s.PIIThreshold,
		ContextWindow:   s.ContextWindow,
		ChunkSize:       s.ChunkSize,
		ChunkOverlap:    s.ChunkOverlap,
		RAGTopK:         s.RAGTopK,
		RRFK:            s.RRFK,
	}
}

// handleUpdateSettings adjusts runtime-tunable settings. It requires the
// same management bearer token as the process's management surface,
// since these settings affect every session, not just the caller's.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if !s.managementAuthorized(r) {
		writeError(w, http.StatusForbidden, "Missing or invalid management token.")
		return
	}

	var req settingsResponse
	req = s.currentSettings()
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body.")
		return
	}

	s.settingsMu.Lock()
	s.DefaultProvider = req.DefaultProvider
	s.PIIThreshold = req.PIIThreshold
	s.ContextWindow = req.ContextWindow
	s.ChunkSize = req.ChunkSize
	s.ChunkOverlap = req.ChunkOverlap
	s.RAGTopK = req.RAGTopK
	s.RRFK = req.RRFK
	s.settingsMu.Unlock()

	writeJSON(w, http.StatusOK, s.currentSettings())
}

func (s *Server) managementAuthorized(r *http.Request) bool {
	if s.ManagementToken == "" {
		return true
	}
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, prefix)), []byte(s.ManagementToken)) == 1
}
