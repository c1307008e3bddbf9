package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Nisrin888/blinder/internal/audit"
	"github.com/Nisrin888/blinder/internal/chunker"
	"github.com/Nisrin888/blinder/internal/orchestrator"
	"github.com/Nisrin888/blinder/internal/pipeline"
	"github.com/Nisrin888/blinder/internal/storage"
)

type documentResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	PIICount  int    `json:"pii_count"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

func toDocumentResponse(d *storage.Document) documentResponse {
	return documentResponse{
		ID:        d.ID,
		Filename:  d.Filename,
		PIICount:  d.PIICount,
		SizeBytes: d.SizeBytes,
		CreatedAt: d.CreatedAt.Format(rfc3339),
	}
}

// handleUploadDocument accepts a multipart document upload, extracts text
// for the extensions this implementation supports, blinds it through the
// pipeline, chunks and embeds it for retrieval, and persists everything.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	sess, err := s.Store.GetSession(r.Context(), sessionID)
	if err == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load session.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Upload exceeds the 50 MiB limit.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Missing file field.")
		return
	}
	defer file.Close()

	ext := extOf(header.Filename)
	if !acceptedExtensions[ext] {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unsupported file type %q.", ext))
		return
	}
	if !extractableExtensions[ext] {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("%q files are accepted but text extraction for this type isn't available yet.", ext))
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not read uploaded file.")
		return
	}

	v, err := orchestrator.LoadVault(r.Context(), s.Store, s.MasterKey, sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not unlock session vault.")
		return
	}

	blinded, piiCount, threats, err := s.Pipeline.ProcessDocument(r.Context(), string(raw), v)
	if hsErr, ok := err.(*pipeline.HighSeverityThreatError); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "High severity threat detected in document.",
			"threats": hsErr.Threats,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not process document.")
		return
	}
	_ = threats // non-fatal threats are not currently surfaced on the upload response

	docID, err := s.Store.InsertDocument(r.Context(), storage.Document{
		SessionID:   sessionID,
		Filename:    header.Filename,
		BlindedText: blinded,
		PIICount:    piiCount,
		SizeBytes:   int64(len(raw)),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not save document.")
		return
	}

	if err := orchestrator.PersistVaultEntries(r.Context(), s.Store, sessionID, v); err != nil {
		s.Log.Warnf("httpapi", "persist vault entries after document upload: %v", err)
	}
	s.Audit.Log(r.Context(), sessionID, audit.EventDocumentBlinded, blinded) //nolint:errcheck

	s.indexDocumentChunks(r.Context(), sessionID, docID, blinded)

	if s.Metrics != nil {
		s.Metrics.DocumentsUploaded.Add(1)
		s.Metrics.PIIEntitiesDetected.Add(int64(piiCount))
	}

	doc, err := s.Store.ListDocuments(r.Context(), sessionID)
	if err != nil || len(doc) == 0 {
		writeJSON(w, http.StatusCreated, map[string]string{"id": docID})
		return
	}
	for i := range doc {
		if doc[i].ID == docID {
			writeJSON(w, http.StatusCreated, toDocumentResponse(&doc[i]))
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": docID})
}

// indexDocumentChunks splits blinded text into chunks, embeds each one,
// and persists them for hybrid retrieval. Embedding failures degrade to
// lexical-only search for that document rather than failing the upload.
func (s *Server) indexDocumentChunks(ctx context.Context, sessionID, docID, blindedText string) {
	chunkSize, chunkOverlap := s.ChunkSize, s.ChunkOverlap
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap <= 0 {
		chunkOverlap = 50
	}
	split := chunker.Split(blindedText, chunkSize, chunkOverlap)
	if len(split) == 0 {
		return
	}

	rows := make([]storage.Chunk, len(split))
	for i, c := range split {
		rows[i] = storage.Chunk{DocumentID: docID, SessionID: sessionID, ChunkIndex: i, Content: c.Text}
	}
	if s.Embedder != nil {
		texts := make([]string, len(split))
		for i, c := range split {
			texts[i] = c.Text
		}
		if vecs, err := s.Embedder.EmbedBatch(ctx, texts); err == nil {
			for i := range rows {
				if i < len(vecs) {
					rows[i].Embedding = vecs[i]
				}
			}
		} else {
			s.Log.Warnf("httpapi", "embed document chunks: %v", err)
		}
	}
	if err := s.Store.InsertChunks(ctx, rows); err != nil {
		s.Log.Warnf("httpapi", "insert document chunks: %v", err)
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	docs, err := s.Store.ListDocuments(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not list documents.")
		return
	}
	out := make([]documentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, out)
}
