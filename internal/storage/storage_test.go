package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, []byte("0123456789012345678901234567890123"))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("expected id %s, got %s", sess.ID, got.ID)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSession(context.Background(), "does-not-exist")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVaultEntryUniqueConstraintIgnoresDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, make([]byte, 32))

	entry := VaultEntryRow{
		SessionID:     sess.ID,
		EntityType:    "PERSON",
		Pseudonym:     "[PERSON_1]",
		Ciphertext:    []byte("ct"),
		Nonce:         []byte("nonce"),
		RealValueHash: "hash-a",
	}
	if err := s.InsertVaultEntry(ctx, entry); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Same (session_id, pseudonym) pair with different content must be
	// ignored, not replace the first row.
	dup := entry
	dup.RealValueHash = "hash-b"
	if err := s.InsertVaultEntry(ctx, dup); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	entries, err := s.ListVaultEntries(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListVaultEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after duplicate insert, got %d", len(entries))
	}
	if entries[0].RealValueHash != "hash-a" {
		t.Fatalf("expected first-written entry to survive, got hash %s", entries[0].RealValueHash)
	}
}

func TestDocumentAndChunkLexicalSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, make([]byte, 32))

	docID, err := s.InsertDocument(ctx, Document{SessionID: sess.ID, Filename: "a.txt", BlindedText: "the settlement requires [PERSON_1] to pay damages"})
	if err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	err = s.InsertChunks(ctx, []Chunk{
		{DocumentID: docID, SessionID: sess.ID, ChunkIndex: 0, Content: "the settlement requires [PERSON_1] to pay damages"},
		{DocumentID: docID, SessionID: sess.ID, ChunkIndex: 1, Content: "the weather forecast predicts rain this weekend"},
	})
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	ids, err := s.LexicalRank(ctx, sess.ID, "settlement damages", 10)
	if err != nil {
		t.Fatalf("LexicalRank: %v", err)
	}
	if len(ids) == 0 {
		t.Fatalf("expected at least one lexical match")
	}
}

func TestChunksContainingPseudonym(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, make([]byte, 32))
	docID, _ := s.InsertDocument(ctx, Document{SessionID: sess.ID, Filename: "a.txt"})
	if err := s.InsertChunks(ctx, []Chunk{
		{DocumentID: docID, SessionID: sess.ID, ChunkIndex: 0, Content: "payment owed by [PERSON_1] and [ORG_1]"},
		{DocumentID: docID, SessionID: sess.ID, ChunkIndex: 1, Content: "no pseudonyms mentioned here"},
	}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	counts, err := s.ChunksContaining(ctx, sess.ID, []string{"[PERSON_1]", "[ORG_1]"})
	if err != nil {
		t.Fatalf("ChunksContaining: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected exactly one matching chunk, got %d", len(counts))
	}
	for _, n := range counts {
		if n != 2 {
			t.Fatalf("expected count 2, got %d", n)
		}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, make([]byte, 32))

	if _, err := s.InsertMessage(ctx, Message{SessionID: sess.ID, Role: "user", LawyerContent: "real text", BlindedContent: "[PERSON_1] text"}); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	msgs, err := s.ListMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].BlindedContent != "[PERSON_1] text" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess, _ := s.CreateSession(ctx, make([]byte, 32))
	s.InsertMessage(ctx, Message{SessionID: sess.ID, Role: "user", LawyerContent: "x", BlindedContent: "x"})

	if err := s.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.GetSession(ctx, sess.ID); err != ErrNotFound {
		t.Fatalf("expected session gone, got %v", err)
	}
	msgs, err := s.ListMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected messages cascaded away, got %d", len(msgs))
	}
}
