package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Nisrin888/blinder/internal/orchestrator"
	"github.com/Nisrin888/blinder/internal/storage"
)

type chatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// sseEvent is the wire shape of one Server-Sent Event. Fields are
// mutually exclusive by Type, matching the SSE event contract.
type sseEvent struct {
	Type           string               `json:"type"`
	Content        string               `json:"content,omitempty"`
	LawyerContent  string               `json:"lawyer_content,omitempty"`
	BlindedContent string               `json:"blinded_content,omitempty"`
	MessageID      string               `json:"message_id,omitempty"`
	Citations      any                  `json:"citations,omitempty"`
	Provider       string               `json:"provider,omitempty"`
	Model          string               `json:"model,omitempty"`
	Title          string               `json:"title,omitempty"`
	Domain         string               `json:"domain,omitempty"`
	Error          string               `json:"error,omitempty"`
	Threats        any                  `json:"threats,omitempty"`
}

// handleChat streams one chat turn back to the caller as Server-Sent
// Events. The HTTP response itself is always 200 once the stream
// starts; turn-level failures are reported as an "error" SSE event, not
// as a non-2xx status, since the body has already begun streaming.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request: need a non-empty \"message\".")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(ev orchestrator.Event) {
		writeSSE(w, toSSEEvent(ev))
		flusher.Flush()
	}

	err := orchestrator.SendMessage(r.Context(), s.deps(), sessionID, req.Message, req.Provider, req.Model, emit)
	if err != nil {
		writeSSE(w, sseEvent{Type: "error", Error: "Session not found or could not be loaded."})
		flusher.Flush()
		return
	}
	if s.Metrics != nil {
		s.Metrics.ChatTurnsTotal.Add(1)
	}
}

func toSSEEvent(ev orchestrator.Event) sseEvent {
	out := sseEvent{Type: ev.Type, Content: ev.Content}
	if ev.Done != nil {
		out.LawyerContent = ev.Done.LawyerContent
		out.BlindedContent = ev.Done.BlindedContent
		out.MessageID = ev.Done.MessageID
		out.Citations = ev.Done.Citations
		out.Provider = ev.Done.Provider
		out.Model = ev.Done.Model
		out.Title = ev.Done.Title
		out.Domain = ev.Done.Domain
	}
	if ev.Err != nil {
		out.Error = ev.Err.Message
		if len(ev.Err.Threats) > 0 {
			out.Threats = ev.Err.Threats
		}
	}
	return out
}

func writeSSE(w http.ResponseWriter, ev sseEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

type messageResponse struct {
	ID             string `json:"id"`
	Role           string `json:"role"`
	LawyerContent  string `json:"lawyer_content"`
	BlindedContent string `json:"blinded_content"`
	CreatedAt      string `json:"created_at"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	msgs, err := s.Store.ListMessages(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not load chat history.")
		return
	}
	out := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = toMessageResponse(&m)
	}
	writeJSON(w, http.StatusOK, out)
}

func toMessageResponse(m *storage.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		Role:           m.Role,
		LawyerContent:  m.LawyerContent,
		BlindedContent: m.BlindedContent,
		CreatedAt:      m.CreatedAt.Format(rfc3339),
	}
}
