package management

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nisrin888/blinder/internal/config"
	"github.com/Nisrin888/blinder/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		APIPort:        8443,
		ManagementPort: 8444,
		OllamaBaseURL:  "http://localhost:11434",
		OllamaModel:    "qwen2.5:3b",
	}
}

type fakeStore struct {
	sessions, documents int
}

func (f fakeStore) CountSessions(ctx context.Context) (int, error)  { return f.sessions, nil }
func (f fakeStore) CountDocuments(ctx context.Context) (int, error) { return f.documents, nil }

func newTestServer(token string) *Server {
	cfg := testConfig()
	cfg.ManagementToken = token
	return New(cfg, fakeStore{sessions: 3, documents: 7}, metrics.New())
}

func TestStatus_OK(t *testing.T) {
	srv := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "running" {
		t.Errorf("expected status=running, got %v", resp["status"])
	}
	if int(resp["sessions"].(float64)) != 3 {
		t.Errorf("expected sessions=3, got %v", resp["sessions"])
	}
	if int(resp["documents"].(float64)) != 7 {
		t.Errorf("expected documents=7, got %v", resp["documents"])
	}
	providers, _ := resp["configuredProviders"].([]any)
	if len(providers) != 1 || providers[0] != "ollama" {
		t.Errorf("expected only ollama configured, got %v", providers)
	}
}

func TestMetrics_OK(t *testing.T) {
	srv := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMetrics_Disabled(t *testing.T) {
	cfg := testConfig()
	srv := New(cfg, fakeStore{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with metrics disabled, got %d", w.Code)
	}
}

func TestAuth_NoToken_PassThrough(t *testing.T) {
	srv := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with no token configured, got %d", w.Code)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	srv := newTestServer("secret123")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", w.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	srv := newTestServer("secret123")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	srv := newTestServer("secret123")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with missing token, got %d", w.Code)
	}
}
