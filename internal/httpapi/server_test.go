package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Nisrin888/blinder/internal/audit"
	"github.com/Nisrin888/blinder/internal/logger"
	"github.com/Nisrin888/blinder/internal/metrics"
	"github.com/Nisrin888/blinder/internal/pipeline"
	"github.com/Nisrin888/blinder/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "blinder.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &Server{
		Store:           store,
		Audit:           audit.NewLogger(store),
		Pipeline:        pipeline.New(nil, true),
		Log:             logger.New("httpapi", "ERROR"),
		Metrics:         metrics.New(),
		MasterKey:       "0123456789abcdef0123456789abcdef",
		DefaultProvider: "ollama",
		PIIThreshold:    0.7,
		ContextWindow:   0.8,
		ChunkSize:       512,
		ChunkOverlap:    50,
		RAGTopK:         10,
		RRFK:            60,
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", w.Code, w.Body)
	}
	var created sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a non-empty session id")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get session: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	body := strings.NewReader(`{"title":"Renamed"}`)
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/sessions/"+created.ID, body))
	if w.Code != http.StatusOK {
		t.Fatalf("patch session: expected 200, got %d: %s", w.Code, w.Body)
	}
	var updated sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("expected title %q, got %q", "Renamed", updated.Title)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+created.ID, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete session: expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted session: expected 404, got %d", w.Code)
	}
}

func TestGetSession_Missing(t *testing.T) {
	s := testServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func createTestSession(t *testing.T, s *Server) string {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d", w.Code)
	}
	var sess sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.ID
}

func uploadMultipart(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadDocument_TextFile(t *testing.T) {
	s := testServer(t)
	sessionID := createTestSession(t, s)

	buf, ct := uploadMultipart(t, "notes.txt", "Contact jane.doe@example.com or call 555-123-4567.")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/documents", buf)
	req.Header.Set("Content-Type", ct)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID+"/documents", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list documents: expected 200, got %d", w.Code)
	}
	var docs []documentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].PIICount == 0 {
		t.Error("expected at least one PII entity to be detected")
	}
}

func TestUploadDocument_UnextractableExtension(t *testing.T) {
	s := testServer(t)
	sessionID := createTestSession(t, s)

	buf, ct := uploadMultipart(t, "report.pdf", "binary-ish content")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/documents", buf)
	req.Header.Set("Content-Type", ct)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for .pdf, got %d: %s", w.Code, w.Body)
	}
}

func TestUploadDocument_RejectedExtension(t *testing.T) {
	s := testServer(t)
	sessionID := createTestSession(t, s)

	buf, ct := uploadMultipart(t, "payload.exe", "whatever")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/documents", buf)
	req.Header.Set("Content-Type", ct)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for .exe, got %d", w.Code)
	}
}

func TestUploadDocument_MissingSession(t *testing.T) {
	s := testServer(t)
	buf, ct := uploadMultipart(t, "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/does-not-exist/documents", buf)
	req.Header.Set("Content-Type", ct)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAuditSummaryAndExport(t *testing.T) {
	s := testServer(t)
	sessionID := createTestSession(t, s)

	buf, ct := uploadMultipart(t, "notes.txt", "Reach him at john.smith@example.com.")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/documents", buf)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID+"/audit", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("audit summary: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID+"/audit/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("audit export: expected 200, got %d", w.Code)
	}
	var report map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if report["report_type"] != "blinder_audit_export" {
		t.Errorf("expected report_type blinder_audit_export, got %v", report["report_type"])
	}
	if s.Metrics.Snapshot().Requests.AuditExports != 1 {
		t.Errorf("expected 1 audit export recorded in metrics")
	}
}

func TestModelsAndSettings(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list models: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models/settings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d", w.Code)
	}

	s.ManagementToken = "secret"
	w = httptest.NewRecorder()
	body := strings.NewReader(`{"chunk_size":1024}`)
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/models/settings", body))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without management token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	body = strings.NewReader(`{"chunk_size":1024,"chunk_overlap":50,"rag_top_k":10,"rrf_k":60,"default_provider":"ollama","pii_confidence_threshold":0.7,"context_window_threshold":0.8}`)
	req := httptest.NewRequest(http.MethodPost, "/api/models/settings", body)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid management token, got %d: %s", w.Code, w.Body)
	}
}
