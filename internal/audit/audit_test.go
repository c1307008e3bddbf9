package audit

import (
	"context"
	"testing"
	"time"

	"github.com/Nisrin888/blinder/internal/storage"
)

type fakeRepo struct {
	logs      []storage.AuditLogRow
	session   *storage.Session
	messages  []storage.Message
	documents []storage.Document
	vault     []storage.VaultEntryRow
}

func (f *fakeRepo) InsertAuditLog(ctx context.Context, row storage.AuditLogRow) (string, error) {
	row.ID = "log-1"
	row.CreatedAt = time.Now()
	f.logs = append(f.logs, row)
	return row.ID, nil
}

func (f *fakeRepo) ListAuditLog(ctx context.Context, sessionID string) ([]storage.AuditLogRow, error) {
	return f.logs, nil
}

func (f *fakeRepo) GetSession(ctx context.Context, id string) (*storage.Session, error) {
	return f.session, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, sessionID string) ([]storage.Message, error) {
	return f.messages, nil
}

func (f *fakeRepo) ListDocuments(ctx context.Context, sessionID string) ([]storage.Document, error) {
	return f.documents, nil
}

func (f *fakeRepo) ListVaultEntries(ctx context.Context, sessionID string) ([]storage.VaultEntryRow, error) {
	return f.vault, nil
}

func TestLogComputesPayloadHash(t *testing.T) {
	repo := &fakeRepo{}
	l := NewLogger(repo)
	if err := l.Log(context.Background(), "sess-1", EventPromptBlinded, "hello [PERSON_1]"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 logged entry, got %d", len(repo.logs))
	}
	want := PayloadHash("hello [PERSON_1]")
	if repo.logs[0].PayloadHash != want {
		t.Fatalf("hash mismatch: got %s want %s", repo.logs[0].PayloadHash, want)
	}
}

func TestSummarizeCountsByType(t *testing.T) {
	repo := &fakeRepo{logs: []storage.AuditLogRow{
		{EventType: EventPromptBlinded},
		{EventType: EventPromptBlinded},
		{EventType: EventResponseBlinded},
	}}
	l := NewLogger(repo)
	summary, err := l.Summarize(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.TotalEvents != 3 || summary.EventsByType[EventPromptBlinded] != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestExportVerifiesHashes(t *testing.T) {
	payload := "the plaintiff is [PERSON_1]"
	repo := &fakeRepo{
		session: &storage.Session{ID: "sess-1", Title: "Demo", Domain: "legal", CreatedAt: time.Now()},
		logs: []storage.AuditLogRow{
			{ID: "log-1", EventType: EventPromptBlinded, PayloadBlinded: payload, PayloadHash: PayloadHash(payload), CreatedAt: time.Now()},
			{ID: "log-2", EventType: EventResponseBlinded, PayloadBlinded: "tampered", PayloadHash: "not-a-real-hash", CreatedAt: time.Now()},
		},
		vault: []storage.VaultEntryRow{
			{EntityType: "PERSON"}, {EntityType: "PERSON"}, {EntityType: "ORG"},
		},
	}
	l := NewLogger(repo)
	report, err := l.Export(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if report.ReportType != "blinder_audit_export" || report.Version != "1.0" {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if !report.AuditLogs[0].PayloadHashVerified {
		t.Fatalf("expected first log hash to verify")
	}
	if report.AuditLogs[1].PayloadHashVerified {
		t.Fatalf("expected second log hash to fail verification")
	}
	if report.VaultStats.TotalEntities != 3 || report.VaultStats.EntitiesByType["PERSON"] != 2 {
		t.Fatalf("unexpected vault stats: %+v", report.VaultStats)
	}
}
