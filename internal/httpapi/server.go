// Package httpapi exposes the session/document/chat/audit REST and SSE
// surface the rest of Blinder's core is driven through. Handlers are
// thin: they decode a request, call into storage/pipeline/orchestrator,
// and encode a response — no business logic lives here.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Nisrin888/blinder/internal/audit"
	"github.com/Nisrin888/blinder/internal/chunker"
	"github.com/Nisrin888/blinder/internal/llm"
	"github.com/Nisrin888/blinder/internal/logger"
	"github.com/Nisrin888/blinder/internal/metrics"
	"github.com/Nisrin888/blinder/internal/orchestrator"
	"github.com/Nisrin888/blinder/internal/pipeline"
	"github.com/Nisrin888/blinder/internal/storage"
)

// maxUploadBytes is the hard ceiling on one document upload.
const maxUploadBytes = 50 * 1024 * 1024

// extractableExtensions lists the upload extensions this implementation
// extracts text from directly; everything else in acceptedExtensions is
// accepted on the wire but rejected with 422 pending an external
// extractor.
var extractableExtensions = map[string]bool{
	".txt": true,
	".csv": true,
	".tsv": true,
}

var acceptedExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".xlsx": true, ".xls": true,
	".csv": true, ".txt": true, ".tsv": true,
}

// Server wires the HTTP surface to its collaborators.
type Server struct {
	Store       *storage.Store
	Audit       *audit.Logger
	Pipeline    *pipeline.Pipeline
	Embedder    *chunker.Embedder
	Config      llm.Config
	Log         *logger.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string

	MasterKey       string
	ManagementToken string

	settingsMu      sync.RWMutex
	DefaultProvider string
	PIIThreshold    float64
	ContextWindow   float64
	ChunkSize       int
	ChunkOverlap    int
	RAGTopK         int
	RRFK            int

	httpMu sync.Mutex
	http   *http.Server
}

func (s *Server) deps() *orchestrator.Deps {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return &orchestrator.Deps{
		Store:           s.Store,
		Audit:           s.Audit,
		Pipeline:        s.Pipeline,
		Embedder:        s.Embedder,
		MasterKey:       s.MasterKey,
		Config:          s.Config,
		Log:             s.Log,
		DefaultProvider: s.DefaultProvider,
		PIIThreshold:    s.PIIThreshold,
		ContextWindow:   s.ContextWindow,
		RAGTopK:         s.RAGTopK,
		RRFK:            s.RRFK,
	}
}

// Handler builds the full routed handler, wrapped in CORS and logging
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("POST /api/sessions/{id}/documents", s.handleUploadDocument)
	mux.HandleFunc("GET /api/sessions/{id}/documents", s.handleListDocuments)

	mux.HandleFunc("POST /api/sessions/{id}/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{id}/chat/history", s.handleChatHistory)

	mux.HandleFunc("GET /api/sessions/{id}/audit", s.handleAuditSummary)
	mux.HandleFunc("GET /api/sessions/{id}/audit/export", s.handleAuditExport)

	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("GET /api/models/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/models/settings", s.handleUpdateSettings)

	return s.corsMiddleware(s.logMiddleware(mux))
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.Infof("HTTP", "%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.CORSOrigins) == 0 {
		return true
	}
	for _, o := range s.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ListenAndServe starts the API server on addr, speaking HTTP/2 over
// cleartext (h2c) so local and containerized deployments don't need a
// TLS terminator in front of it. It blocks until the server stops; call
// Shutdown from another goroutine to stop it gracefully.
func (s *Server) ListenAndServe(addr string) error {
	h2s := &http2.Server{}
	handler := h2c.NewHandler(s.Handler(), h2s)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpMu.Lock()
	s.http = srv
	s.httpMu.Unlock()

	s.Log.Infof("HTTP", "listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server started by ListenAndServe. It is
// a no-op if ListenAndServe has not yet been called.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	srv := s.http
	s.httpMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func extOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i:])
}

func randomSalt() ([]byte, error) {
	salt := make([]byte, 32)
	_, err := rand.Read(salt)
	return salt, err
}
