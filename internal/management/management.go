// Package management provides a lightweight, process-local HTTP API for
// runtime inspection of the running core: uptime, configured providers,
// session/document counts, and request/latency metrics. It listens on
// its own port, separate from the public API surface.
//
// Endpoints:
//
//	GET /status   - uptime, configured providers, session/document counts
//	GET /metrics  - request counters and latency snapshot
package management

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Nisrin888/blinder/internal/config"
	"github.com/Nisrin888/blinder/internal/metrics"
)

// CountStore is the storage dependency status reporting needs.
type CountStore interface {
	CountSessions(ctx context.Context) (int, error)
	CountDocuments(ctx context.Context) (int, error)
}

// Server is the management API server.
type Server struct {
	cfg       *config.Config
	startTime time.Time
	store     CountStore
	token     string           // bearer token for auth; empty = no auth
	metrics   *metrics.Metrics // nil = no metrics
}

// New creates a management server.
func New(cfg *config.Config, store CountStore, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		store:     store,
		token:     cfg.ManagementToken,
		metrics:   m,
	}
	if s.token != "" {
		log.Printf("[MANAGEMENT] Bearer token authentication enabled")
	}
	return s
}

// Handler returns the HTTP handler for the management API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return s.authMiddleware(mux)
}

// authMiddleware checks for a valid Bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(auth[len(prefix):])), []byte(s.token)) != 1 {
			log.Printf("[MANAGEMENT] Unauthorized access attempt from %s to %s", r.RemoteAddr, r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status    string   `json:"status"`
		Uptime    string   `json:"uptime"`
		APIPort   int      `json:"apiPort"`
		Providers []string `json:"configuredProviders"`
		Sessions  int      `json:"sessions"`
		Documents int      `json:"documents"`
	}

	resp := response{
		Status:    "running",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		APIPort:   s.cfg.APIPort,
		Providers: s.configuredProviders(),
	}

	if s.store != nil {
		if n, err := s.store.CountSessions(r.Context()); err == nil {
			resp.Sessions = n
		}
		if n, err := s.store.CountDocuments(r.Context()); err == nil {
			resp.Documents = n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// configuredProviders lists the LLM providers with enough configuration
// to be usable, without leaking any API key.
func (s *Server) configuredProviders() []string {
	var out []string
	if s.cfg.OllamaBaseURL != "" {
		out = append(out, "ollama")
	}
	if s.cfg.OpenAIAPIKey != "" {
		out = append(out, "openai")
	}
	if s.cfg.AnthropicAPIKey != "" {
		out = append(out, "anthropic")
	}
	return out
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[MANAGEMENT] JSON encode error: %v", err)
	}
}

// ListenAndServe starts the management HTTP server on 127.0.0.1, never
// on a public interface, since it carries no TLS of its own.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.ManagementPort)
	log.Printf("[MANAGEMENT] Listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
