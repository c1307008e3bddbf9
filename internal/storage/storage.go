// Package storage persists sessions, vault entries, documents, chunks,
// messages, and audit log rows in a single SQLite database file. Lexical
// chunk search runs over an FTS5 virtual table; vector search is a
// linear cosine scan over stored embedding blobs — there is no ANN index,
// matching the single-process, no-distributed-locking scope this server
// runs in.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nisrin888/blinder/internal/chunker"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = fmt.Errorf("storage: not found")

// Session is one chat session's durable row.
type Session struct {
	ID        string
	Title     string
	Domain    string
	Salt      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VaultEntryRow is the persisted shape of one vault entry.
type VaultEntryRow struct {
	SessionID     string
	EntityType    string
	Pseudonym     string
	Ciphertext    []byte
	Nonce         []byte
	RealValueHash string
	Aliases       []string
	CreatedAt     time.Time
}

// Document is one uploaded, already-blinded document.
type Document struct {
	ID          string
	SessionID   string
	Filename    string
	BlindedText string
	PIICount    int
	SizeBytes   int64
	CreatedAt   time.Time
}

// Chunk is one retrieval unit of a document's blinded text.
type Chunk struct {
	ID         string
	DocumentID string
	SessionID  string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// Message is one turn of a session's chat history.
type Message struct {
	ID             string
	SessionID      string
	Role           string // "user" or "assistant"
	LawyerContent  string
	BlindedContent string
	Citations      string // JSON-encoded []citation.Citation, empty if none
	ThreatsJSON    string // JSON-encoded []sanitizer.Threat, empty if none
	CreatedAt      time.Time
}

// AuditLogRow is one entry in the tamper-evident audit trail.
type AuditLogRow struct {
	ID              string
	SessionID       string
	EventType       string
	PayloadBlinded  string
	PayloadHash     string
	CreatedAt       time.Time
}

// Store is the SQLite-backed repository for the whole server.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and runs
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		domain TEXT NOT NULL DEFAULT '',
		salt BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vault_entries (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		entity_type TEXT NOT NULL,
		pseudonym TEXT NOT NULL,
		ciphertext BLOB NOT NULL,
		nonce BLOB NOT NULL,
		real_value_hash TEXT NOT NULL,
		aliases TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		UNIQUE(session_id, pseudonym)
	);
	CREATE INDEX IF NOT EXISTS idx_vault_session ON vault_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_vault_hash ON vault_entries(real_value_hash);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		blinded_text TEXT NOT NULL,
		pii_count INTEGER NOT NULL DEFAULT 0,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_session ON documents(session_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_session ON chunks(session_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		content, content='chunks', content_rowid='rowid'
	);
	CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
		INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
	END;
	CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	END;
	CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
	END;

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		lawyer_content TEXT NOT NULL,
		blinded_content TEXT NOT NULL,
		citations TEXT NOT NULL DEFAULT '',
		threats TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		payload_blinded TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_log(session_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, salt []byte) (*Session, error) {
	now := time.Now()
	sess := &Session{ID: uuid.NewString(), Salt: salt, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, domain, salt, created_at, updated_at) VALUES (?, '', '', ?, ?, ?)`,
		sess.ID, sess.Salt, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("storage: create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, domain, salt, created_at, updated_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Domain, &sess.Salt, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns every session, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, domain, salt, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Domain, &sess.Salt, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// UpdateSessionTitle sets a session's display title.
func (s *Store) UpdateSessionTitle(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`, title, time.Now(), id)
	if err != nil {
		return fmt.Errorf("storage: update session title: %w", err)
	}
	return nil
}

// UpdateSessionDomain sets a session's detected domain, once.
func (s *Store) UpdateSessionDomain(ctx context.Context, id, domain string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET domain = ?, updated_at = ? WHERE id = ?`, domain, time.Now(), id)
	if err != nil {
		return fmt.Errorf("storage: update session domain: %w", err)
	}
	return nil
}

// DeleteSession removes a session and, via ON DELETE CASCADE, everything
// that belongs to it.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertVaultEntry persists one new vault entry. A row whose
// (session_id, pseudonym) pair already exists is ignored (INSERT OR
// IGNORE) without an error, so the first row written is kept rather than
// overwritten.
func (s *Store) InsertVaultEntry(ctx context.Context, e VaultEntryRow) error {
	aliasesJSON, err := marshalAliases(e.Aliases)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO vault_entries
		 (id, session_id, entity_type, pseudonym, ciphertext, nonce, real_value_hash, aliases, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), e.SessionID, e.EntityType, e.Pseudonym, e.Ciphertext, e.Nonce, e.RealValueHash, aliasesJSON, time.Now())
	if err != nil {
		return fmt.Errorf("storage: insert vault entry: %w", err)
	}
	return nil
}

// ListVaultEntries loads every vault entry for a session, oldest first
// (created_at, then id), so that when two rows share a real value
// vault.LoadEntries maps that value to the first row written — the
// resolution rule for the cross-request uniqueness question.
func (s *Store) ListVaultEntries(ctx context.Context, sessionID string) ([]VaultEntryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, entity_type, pseudonym, ciphertext, nonce, real_value_hash, aliases, created_at
		 FROM vault_entries WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: list vault entries: %w", err)
	}
	defer rows.Close()

	var out []VaultEntryRow
	for rows.Next() {
		var e VaultEntryRow
		var aliasesJSON string
		if err := rows.Scan(&e.SessionID, &e.EntityType, &e.Pseudonym, &e.Ciphertext, &e.Nonce, &e.RealValueHash, &aliasesJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan vault entry: %w", err)
		}
		e.Aliases = unmarshalAliases(aliasesJSON)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertDocument persists a blinded document and returns its assigned ID.
func (s *Store) InsertDocument(ctx context.Context, d Document) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, session_id, filename, blinded_text, pii_count, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, d.SessionID, d.Filename, d.BlindedText, d.PIICount, d.SizeBytes, time.Now())
	if err != nil {
		return "", fmt.Errorf("storage: insert document: %w", err)
	}
	return id, nil
}

// ListDocuments loads every document uploaded to a session.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, filename, blinded_text, pii_count, size_bytes, created_at
		 FROM documents WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Filename, &d.BlindedText, &d.PIICount, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertChunks persists a batch of chunks for one document, encoding each
// embedding as a little-endian float32 blob.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin chunk insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, session_id, chunk_index, content, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		var embedding []byte
		if c.Embedding != nil {
			embedding = chunker.EncodeVector(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, id, c.DocumentID, c.SessionID, c.ChunkIndex, c.Content, embedding); err != nil {
			return fmt.Errorf("storage: insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// LexicalRank implements retriever.ChunkSource over the chunks_fts
// virtual table, ranked by FTS5's built-in bm25().
func (s *Store) LexicalRank(ctx context.Context, sessionID, query string, limit int) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id FROM chunks c
		JOIN chunks_fts f ON f.rowid = c.rowid
		WHERE c.session_id = ? AND chunks_fts MATCH ?
		ORDER BY bm25(chunks_fts) LIMIT ?`, sessionID, ftsQuery(query), limit)
	if err != nil {
		// FTS5 MATCH throws on malformed query syntax (bare punctuation, etc);
		// treat that as "no lexical signal" rather than failing retrieval.
		return nil, nil //nolint:nilerr
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan lexical rank: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VectorRank implements retriever.ChunkSource with a linear cosine scan
// over stored embeddings. Acceptable at the single-session, single-process
// scale this server runs at; an ANN index is out of scope.
func (s *Store) VectorRank(ctx context.Context, sessionID string, queryEmbedding []float32, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM chunks WHERE session_id = ? AND embedding IS NOT NULL`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: scan embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("storage: scan embedding row: %w", err)
		}
		vec := chunker.DecodeVector(blob)
		candidates = append(candidates, scored{id, chunker.CosineSimilarity(vec, queryEmbedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortByScoreDesc(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

func sortByScoreDesc(s []struct {
	id    string
	score float64
}) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].score > s[j-1].score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// ChunksContaining implements retriever.ChunkSource's pseudonym-exact
// signal: for each pseudonym, find which chunks mention it and tally how
// many distinct pseudonyms land in the same chunk.
func (s *Store) ChunksContaining(ctx context.Context, sessionID string, pseudonyms []string) (map[string]int, error) {
	if len(pseudonyms) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content FROM chunks WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: scan chunks for pseudonyms: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("storage: scan chunk content: %w", err)
		}
		n := 0
		for _, p := range pseudonyms {
			if p != "" && strings.Contains(content, p) {
				n++
			}
		}
		if n > 0 {
			counts[id] = n
		}
	}
	return counts, rows.Err()
}

// GetChunkContent loads the raw text of chunks by ID, in the order given.
func (s *Store) GetChunkContent(ctx context.Context, chunkIDs []string) ([]string, error) {
	out := make([]string, 0, len(chunkIDs))
	stmt, err := s.db.PrepareContext(ctx, `SELECT content FROM chunks WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("storage: prepare chunk content lookup: %w", err)
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		var content string
		if err := stmt.QueryRowContext(ctx, id).Scan(&content); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("storage: get chunk content: %w", err)
		}
		out = append(out, content)
	}
	return out, nil
}

// InsertMessage persists one chat turn and returns its assigned ID.
func (s *Store) InsertMessage(ctx context.Context, m Message) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, lawyer_content, blinded_content, citations, threats, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.SessionID, m.Role, m.LawyerContent, m.BlindedContent, m.Citations, m.ThreatsJSON, time.Now())
	if err != nil {
		return "", fmt.Errorf("storage: insert message: %w", err)
	}
	return id, nil
}

// ListMessages loads a session's chat history, oldest first.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, lawyer_content, blinded_content, citations, threats, created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.LawyerContent, &m.BlindedContent, &m.Citations, &m.ThreatsJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertAuditLog persists one audit trail row.
func (s *Store) InsertAuditLog(ctx context.Context, a AuditLogRow) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, session_id, event_type, payload_blinded, payload_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, a.SessionID, a.EventType, a.PayloadBlinded, a.PayloadHash, time.Now())
	if err != nil {
		return "", fmt.Errorf("storage: insert audit log: %w", err)
	}
	return id, nil
}

// ListAuditLog loads a session's audit trail, oldest first.
func (s *Store) ListAuditLog(ctx context.Context, sessionID string) ([]AuditLogRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, event_type, payload_blinded, payload_hash, created_at
		 FROM audit_log WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage: list audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditLogRow
	for rows.Next() {
		var a AuditLogRow
		if err := rows.Scan(&a.ID, &a.SessionID, &a.EventType, &a.PayloadBlinded, &a.PayloadHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan audit log: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountSessions returns the total number of sessions, for the management
// status endpoint.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// CountDocuments returns the total number of documents, for the
// management status endpoint.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

func marshalAliases(aliases []string) (string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "", fmt.Errorf("storage: marshal aliases: %w", err)
	}
	return string(b), nil
}

func unmarshalAliases(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// ftsQuery wraps each whitespace-separated word of free text in double
// quotes so FTS5 treats punctuation in pseudonyms and prose alike as literal
// text rather than query syntax, and joins the words with OR so any chunk
// containing at least one of them is ranked by bm25().
func ftsQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + escapeFTSQuotes(w) + `"`
	}
	return strings.Join(words, " OR ")
}

func escapeFTSQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
