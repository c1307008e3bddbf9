// Package orchestrator drives one chat turn end to end: load the
// session's vault, run the prompt through the blinding pipeline, pick a
// context-assembly strategy, stream the LLM's response, restore
// pseudonyms, extract citations, and persist everything it touched. It
// is the one place that holds every other component's collaborators at
// once.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nisrin888/blinder/internal/audit"
	"github.com/Nisrin888/blinder/internal/chunker"
	"github.com/Nisrin888/blinder/internal/citation"
	"github.com/Nisrin888/blinder/internal/crypto"
	"github.com/Nisrin888/blinder/internal/depseudo"
	"github.com/Nisrin888/blinder/internal/llm"
	"github.com/Nisrin888/blinder/internal/logger"
	"github.com/Nisrin888/blinder/internal/pipeline"
	"github.com/Nisrin888/blinder/internal/promptctx"
	"github.com/Nisrin888/blinder/internal/retriever"
	"github.com/Nisrin888/blinder/internal/sanitizer"
	"github.com/Nisrin888/blinder/internal/storage"
	"github.com/Nisrin888/blinder/internal/tabular"
	"github.com/Nisrin888/blinder/internal/vault"
)

// titleGenPrompt is the fixed system instruction for first-message title
// generation; kept short so it costs almost nothing against the context
// budget.
const titleGenPrompt = `Generate a brief title (3-6 words) summarizing what this conversation is about. Respond with only the title text, no quotes, no punctuation at the end.`

// Event is one SSE-shaped update emitted during SendMessage.
type Event struct {
	Type    string // "start", "chunk", "done", "error"
	Content string // chunk delta, when Type == "chunk"
	Done    *DoneEvent
	Err     *ErrorEvent
}

// DoneEvent is the terminal success payload of a chat turn.
type DoneEvent struct {
	LawyerContent  string
	BlindedContent string
	MessageID      string
	Citations      []citation.Citation
	Provider       string
	Model          string
	Title          string // empty unless freshly generated this turn
	Domain         string // empty unless freshly detected this turn
}

// ErrorEvent is the terminal failure payload of a chat turn.
type ErrorEvent struct {
	Message string
	Threats []sanitizer.Threat
}

// Deps bundles every collaborator SendMessage needs.
type Deps struct {
	Store     *storage.Store
	Audit     *audit.Logger
	Pipeline  *pipeline.Pipeline
	Embedder  *chunker.Embedder
	MasterKey string
	Config    llm.Config
	Log       *logger.Logger

	DefaultProvider string
	PIIThreshold    float64
	ContextWindow   float64 // fraction of model context usable for input
	RAGTopK         int
	RRFK            int
}

// SendMessage runs one chat turn for sessionID, emitting events through
// emit as the response streams in. A non-nil return error means the SSE
// stream itself could not be produced at all (session lookup failure);
// everything else after the stream starts is reported as an Event with
// Type "error", never as a Go error, since the caller has already
// committed to an HTTP response by that point.
func SendMessage(ctx context.Context, deps *Deps, sessionID, message, providerOverride, modelOverride string, emit func(Event)) error {
	sess, err := deps.Store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("orchestrator: load session: %w", err)
	}

	v, llmClient, safeErr := prepareTurn(ctx, deps, sess, providerOverride, modelOverride)
	if safeErr != "" {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeErr}})
		return nil
	}

	blinded, threats, err := deps.Pipeline.ProcessPrompt(ctx, message, v)
	var threatErr *pipeline.HighSeverityThreatError
	if errors.As(err, &threatErr) {
		emit(Event{Type: "error", Err: &ErrorEvent{
			Message: "High severity threat detected",
			Threats: threatErr.Threats,
		}})
		return nil
	}
	if err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}

	if _, err := deps.Store.InsertMessage(ctx, storage.Message{
		SessionID:      sessionID,
		Role:           "user",
		LawyerContent:  message,
		BlindedContent: blinded,
		ThreatsJSON:    encodeThreats(threats),
	}); err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}
	deps.Audit.Log(ctx, sessionID, audit.EventPromptBlinded, blinded) //nolint:errcheck // audit failures never abort the chat turn

	history, err := loadHistory(ctx, deps.Store, sessionID)
	if err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}
	isFirstMessage := len(history) == 0

	docs, err := deps.Store.ListDocuments(ctx, sessionID)
	if err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}
	blindedDocs := make([]string, 0, len(docs))
	docChunks := make([]citation.Chunk, 0, len(docs))
	for _, d := range docs {
		if d.BlindedText == "" {
			continue
		}
		blindedDocs = append(blindedDocs, d.BlindedText)
		docChunks = append(docChunks, citation.Chunk{DocumentID: d.ID, Filename: d.Filename, ChunkIndex: 0, Text: d.BlindedText})
	}

	domain := sess.Domain
	detectedDomain := ""
	if domain == "" && isFirstMessage {
		domain = promptctx.DetectDomain(ctx, blinded, llmClient)
		if err := deps.Store.UpdateSessionDomain(ctx, sessionID, domain); err == nil {
			detectedDomain = domain
		}
	}
	if domain == "" {
		domain = "general"
	}

	retrievedChunks := buildRetrievalContext(ctx, deps, sessionID, blinded, blindedDocs, llmClient, history)

	builder := promptctx.NewBuilder(llmClient)
	if deps.ContextWindow > 0 {
		builder.Threshold = deps.ContextWindow
	}
	llmMessages := builder.BuildMessages(ctx, blindedDocs, history, blinded, nil, domain, retrievedChunks)

	emit(Event{Type: "start"})

	var fullBlindedResponse strings.Builder
	_, err = llmClient.ChatStream(ctx, llmMessages, func(delta string) error {
		fullBlindedResponse.WriteString(delta)
		emit(Event{Type: "chunk", Content: delta})
		return nil
	})
	if err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}

	blindedResponse := fullBlindedResponse.String()
	restoredResponse := restoreText(blindedResponse, v)

	cites := citation.Extract(blindedResponse, docChunks)
	for i := range cites {
		cites[i].SnippetBlinded = restoreText(cites[i].SnippetBlinded, v)
	}

	messageID, err := deps.Store.InsertMessage(ctx, storage.Message{
		SessionID:      sessionID,
		Role:           "assistant",
		LawyerContent:  restoredResponse,
		BlindedContent: blindedResponse,
		Citations:      encodeCitations(cites),
	})
	if err != nil {
		emit(Event{Type: "error", Err: &ErrorEvent{Message: safeMessage(err)}})
		return nil
	}
	deps.Audit.Log(ctx, sessionID, audit.EventResponseBlinded, blindedResponse) //nolint:errcheck

	PersistVaultEntries(ctx, deps.Store, sessionID, v) //nolint:errcheck // logged internally, never fails the turn

	title := ""
	if isFirstMessage {
		title = generateTitle(ctx, llmClient, blinded, v)
		if title != "" {
			deps.Store.UpdateSessionTitle(ctx, sessionID, title) //nolint:errcheck
		}
	}

	emit(Event{Type: "done", Done: &DoneEvent{
		LawyerContent:  restoredResponse,
		BlindedContent: blindedResponse,
		MessageID:      messageID,
		Citations:      cites,
		Provider:       llmClient.ProviderName(),
		Model:          llmClient.ModelName(),
		Title:          title,
		Domain:         detectedDomain,
	}})
	return nil
}

// prepareTurn rehydrates the session's vault and resolves the LLM
// client. A non-empty safeErr means the caller should emit it as an
// error event and stop; the caller never sees the underlying Go error,
// matching the fixed-message mapping the provider factory requires.
func prepareTurn(ctx context.Context, deps *Deps, sess *storage.Session, providerOverride, modelOverride string) (*vault.Vault, llm.Provider, string) {
	v, err := LoadVault(ctx, deps.Store, deps.MasterKey, sess)
	if err != nil {
		return nil, nil, safeMessage(err)
	}

	provider := providerOverride
	if provider == "" {
		provider = deps.DefaultProvider
	}
	if provider == "" {
		provider = "ollama"
	}
	client, err := llm.Create(provider, modelOverride, deps.Config)
	if err != nil {
		return nil, nil, safeMessage(err)
	}
	return v, client, ""
}

// LoadVault rehydrates a session's vault from its persisted entries.
// Exported so other entry points (document upload) that need to
// pseudonymize text without running a chat turn can reuse the same
// decrypt-and-load path the orchestrator uses.
func LoadVault(ctx context.Context, store *storage.Store, masterKey string, sess *storage.Session) (*vault.Vault, error) {
	key, err := crypto.DeriveKey(masterKey, sess.Salt)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: derive vault key: %w", err)
	}
	v := vault.New(key)

	rows, err := store.ListVaultEntries(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load vault entries: %w", err)
	}
	persisted := make([]vault.PersistedEntry, len(rows))
	for i, r := range rows {
		persisted[i] = vault.PersistedEntry{
			EntityType: r.EntityType,
			Pseudonym:  r.Pseudonym,
			Ciphertext: r.Ciphertext,
			Nonce:      r.Nonce,
			Aliases:    r.Aliases,
		}
	}
	if err := v.LoadEntries(persisted); err != nil {
		return nil, fmt.Errorf("orchestrator: decrypt vault entries: %w", err)
	}
	return v, nil
}

func loadHistory(ctx context.Context, store *storage.Store, sessionID string) ([]llm.Message, error) {
	rows, err := store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load history: %w", err)
	}
	// The user message for this turn was just inserted; exclude it so
	// the builder sees only prior turns.
	if len(rows) > 0 {
		rows = rows[:len(rows)-1]
	}
	out := make([]llm.Message, len(rows))
	for i, r := range rows {
		out[i] = llm.Message{Role: r.Role, Content: r.BlindedContent}
	}
	return out, nil
}

// buildRetrievalContext runs the three-tier context strategy: tabular
// query first, hybrid RAG if the documents don't fit the context
// budget, or nil (full-document stuffing, handled inside the builder).
func buildRetrievalContext(ctx context.Context, deps *Deps, sessionID, blindedPrompt string, blindedDocs []string, llmClient llm.Provider, history []llm.Message) []string {
	if result, ok := tabular.TryQuery(blindedPrompt, blindedDocs); ok && result.Success {
		return []string{result.Context}
	}

	contextWindow := llmClient.ContextWindowSize(ctx)
	threshold := deps.ContextWindow
	if threshold <= 0 {
		threshold = 0.8
	}
	maxTokens := int(threshold * float64(contextWindow))

	totalDocTokens := 0
	for _, d := range blindedDocs {
		totalDocTokens += chunker.CountTokens(d)
	}
	if totalDocTokens <= int(float64(maxTokens)*0.6) {
		return nil
	}

	historyTokens := 0
	for _, m := range history {
		historyTokens += chunker.CountTokens(m.Content)
	}
	promptTokens := chunker.CountTokens(blindedPrompt)
	adaptiveTopK := retriever.AdaptiveTopK(contextWindow, historyTokens, promptTokens, deps.RAGTopK)

	queryEmbedding, err := deps.Embedder.Embed(ctx, blindedPrompt)
	if err != nil {
		return nil
	}

	scored, err := retriever.HybridSearch(ctx, deps.Store, sessionID, blindedPrompt, queryEmbedding, adaptiveTopK, deps.RRFK)
	if err != nil || len(scored) == 0 {
		return nil
	}
	ids := make([]string, len(scored))
	for i, sc := range scored {
		ids[i] = sc.ChunkID
	}
	content, err := deps.Store.GetChunkContent(ctx, ids)
	if err != nil {
		return nil
	}
	return content
}

func restoreText(text string, v *vault.Vault) string {
	return depseudo.Restore(text, v)
}

func generateTitle(ctx context.Context, llmClient llm.Provider, blindedPrompt string, v *vault.Vault) string {
	titleMessages := []llm.Message{
		{Role: "system", Content: titleGenPrompt},
		{Role: "user", Content: blindedPrompt},
	}
	blindedTitle, err := llmClient.ChatComplete(ctx, titleMessages)
	if err != nil {
		return ""
	}
	blindedTitle = strings.Trim(strings.TrimSpace(blindedTitle), `"'`)
	blindedTitle = strings.TrimSuffix(blindedTitle, ".")
	if blindedTitle == "" {
		return ""
	}
	return restoreText(blindedTitle, v)
}

// PersistVaultEntries encrypts and persists any vault entries created
// since the last call (new PII the pipeline just pseudonymized), so
// other entry points besides SendMessage can persist vault growth too.
func PersistVaultEntries(ctx context.Context, store *storage.Store, sessionID string, v *vault.Vault) error {
	pending, err := v.PendingEntries()
	if err != nil {
		return fmt.Errorf("orchestrator: encrypt pending vault entries: %w", err)
	}
	entries := v.Entries()
	for _, p := range pending {
		hash := p.Pseudonym
		if e, ok := entries[p.Pseudonym]; ok {
			hash = realValueHash(e.RealValue)
		}
		row := storage.VaultEntryRow{
			SessionID:     sessionID,
			EntityType:    p.EntityType,
			Pseudonym:     p.Pseudonym,
			Ciphertext:    p.Ciphertext,
			Nonce:         p.Nonce,
			RealValueHash: hash,
			Aliases:       p.Aliases,
		}
		if err := store.InsertVaultEntry(ctx, row); err != nil {
			return fmt.Errorf("orchestrator: persist vault entry %s: %w", p.Pseudonym, err)
		}
	}
	return nil
}

func realValueHash(realValue string) string {
	sum := sha256.Sum256([]byte(realValue))
	return hex.EncodeToString(sum[:])
}

// encodeThreats JSON-encodes a threat list for storage.Message.ThreatsJSON,
// returning "" for an empty list so the column's NOT NULL DEFAULT '' is
// never violated by a literal "null".
func encodeThreats(threats []sanitizer.Threat) string {
	if len(threats) == 0 {
		return ""
	}
	b, err := json.Marshal(threats)
	if err != nil {
		return ""
	}
	return string(b)
}

// encodeCitations JSON-encodes a citation list for storage.Message.Citations.
func encodeCitations(cites []citation.Citation) string {
	if len(cites) == 0 {
		return ""
	}
	b, err := json.Marshal(cites)
	if err != nil {
		return ""
	}
	return string(b)
}

// safeMessage maps an internal error to the fixed, never-leaks-raw-text
// message shown to the caller. Connection and HTTP-status errors from the
// LLM transport get specific wording; everything else gets a generic one.
func safeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, llm.ErrProviderMisconfigured) {
		return "LLM provider is not configured correctly. Check your settings."
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return "Cannot connect to LLM provider. Is Ollama running?"
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode() {
		case http.StatusUnauthorized:
			return "LLM provider authentication failed. Check your API key in Settings."
		case http.StatusTooManyRequests:
			return "LLM provider rate limit exceeded. Please wait and try again."
		case http.StatusNotFound:
			return "LLM model not found. Check your model selection."
		default:
			return "LLM provider returned an error (HTTP " + strconv.Itoa(statusErr.StatusCode()) + ")."
		}
	}

	return "Something went wrong processing your message. Check server logs for details."
}
