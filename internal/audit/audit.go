// Package audit records a tamper-evident trail of blinded events per
// session and exports it as a self-verifying JSON report. Every logged
// payload carries a SHA-256 hash alongside it, so an auditor can confirm
// no entry was altered after the fact without needing access to the vault
// or the master key.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Nisrin888/blinder/internal/storage"
)

// Event types recorded in the trail.
const (
	EventPromptBlinded   = "prompt_blinded"
	EventResponseBlinded = "response_blinded"
	EventDocumentBlinded = "document_blinded"
	EventThreatDetected  = "threat_detected"
)

// Repository is the persistence dependency audit needs; storage.Store
// satisfies it directly.
type Repository interface {
	InsertAuditLog(ctx context.Context, row storage.AuditLogRow) (string, error)
	ListAuditLog(ctx context.Context, sessionID string) ([]storage.AuditLogRow, error)
	GetSession(ctx context.Context, id string) (*storage.Session, error)
	ListMessages(ctx context.Context, sessionID string) ([]storage.Message, error)
	ListDocuments(ctx context.Context, sessionID string) ([]storage.Document, error)
	ListVaultEntries(ctx context.Context, sessionID string) ([]storage.VaultEntryRow, error)
}

// Logger writes audit trail entries, hashing the payload at write time.
type Logger struct {
	repo Repository
}

// NewLogger builds a Logger backed by repo.
func NewLogger(repo Repository) *Logger {
	return &Logger{repo: repo}
}

// PayloadHash returns the SHA-256 hex digest of a blinded payload, the
// same value stored alongside the payload at write time.
func PayloadHash(payloadBlinded string) string {
	sum := sha256.Sum256([]byte(payloadBlinded))
	return hex.EncodeToString(sum[:])
}

// Log records one event for sessionID. The payload must already be
// blinded — this package never sees or stores a real value.
func (l *Logger) Log(ctx context.Context, sessionID, eventType, payloadBlinded string) error {
	_, err := l.repo.InsertAuditLog(ctx, storage.AuditLogRow{
		SessionID:      sessionID,
		EventType:      eventType,
		PayloadBlinded: payloadBlinded,
		PayloadHash:    PayloadHash(payloadBlinded),
	})
	if err != nil {
		return fmt.Errorf("audit: log %s: %w", eventType, err)
	}
	return nil
}

// Summary is the count-by-type view returned by the audit summary endpoint.
type Summary struct {
	SessionID    string
	TotalEvents  int
	EventsByType map[string]int
}

// Summarize tallies a session's audit log by event type.
func (l *Logger) Summarize(ctx context.Context, sessionID string) (*Summary, error) {
	logs, err := l.repo.ListAuditLog(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: summarize: %w", err)
	}
	byType := make(map[string]int)
	for _, log := range logs {
		byType[log.EventType]++
	}
	return &Summary{SessionID: sessionID, TotalEvents: len(logs), EventsByType: byType}, nil
}

// Report is the full export shape for a session's audit trail.
type Report struct {
	ReportType    string           `json:"report_type"`
	Version       string           `json:"version"`
	GeneratedAt   string           `json:"generated_at"`
	Session       ReportSession    `json:"session"`
	AuditLogs     []ReportAuditLog `json:"audit_logs"`
	Messages      []ReportMessage  `json:"messages"`
	Documents     []ReportDocument `json:"documents"`
	VaultStats    ReportVaultStats `json:"vault_stats"`
	IntegrityNote string           `json:"integrity_note"`
}

// ReportSession is the session header of an export.
type ReportSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
	CreatedAt string `json:"created_at"`
}

// ReportAuditLog is one audit log entry in an export, with its hash
// re-verified at export time rather than trusted from storage.
type ReportAuditLog struct {
	ID                  string `json:"id"`
	EventType           string `json:"event_type"`
	PayloadBlinded      string `json:"payload_blinded"`
	PayloadHash         string `json:"payload_hash"`
	PayloadHashVerified bool   `json:"payload_hash_verified"`
	CreatedAt           string `json:"created_at"`
}

// ReportMessage is one chat turn in an export — blinded content only.
type ReportMessage struct {
	ID             string `json:"id"`
	Role           string `json:"role"`
	BlindedContent string `json:"blinded_content"`
	CreatedAt      string `json:"created_at"`
}

// ReportDocument is one uploaded document's metadata in an export.
type ReportDocument struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	PIICount  int    `json:"pii_count"`
	CreatedAt string `json:"created_at"`
}

// ReportVaultStats summarizes vault entity counts without exposing any
// real value.
type ReportVaultStats struct {
	TotalEntities  int            `json:"total_entities"`
	EntitiesByType map[string]int `json:"entities_by_type"`
}

const integrityNote = "Each audit log entry includes a SHA-256 hash of its payload. " +
	"Verify with: echo -n '<payload_blinded>' | sha256sum"

// Export builds the full, self-verifying audit report for a session.
func (l *Logger) Export(ctx context.Context, sessionID string) (*Report, error) {
	sess, err := l.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: export: load session: %w", err)
	}
	logs, err := l.repo.ListAuditLog(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: export: load audit log: %w", err)
	}
	messages, err := l.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: export: load messages: %w", err)
	}
	documents, err := l.repo.ListDocuments(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: export: load documents: %w", err)
	}
	vaultEntries, err := l.repo.ListVaultEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("audit: export: load vault entries: %w", err)
	}

	vaultStats := ReportVaultStats{EntitiesByType: make(map[string]int)}
	for _, e := range vaultEntries {
		vaultStats.EntitiesByType[e.EntityType]++
	}
	vaultStats.TotalEntities = len(vaultEntries)

	reportLogs := make([]ReportAuditLog, len(logs))
	for i, log := range logs {
		reportLogs[i] = ReportAuditLog{
			ID:                  log.ID,
			EventType:           log.EventType,
			PayloadBlinded:      log.PayloadBlinded,
			PayloadHash:         log.PayloadHash,
			PayloadHashVerified: PayloadHash(log.PayloadBlinded) == log.PayloadHash,
			CreatedAt:           log.CreatedAt.Format(time.RFC3339),
		}
	}

	reportMessages := make([]ReportMessage, len(messages))
	for i, m := range messages {
		reportMessages[i] = ReportMessage{
			ID:             m.ID,
			Role:           m.Role,
			BlindedContent: m.BlindedContent,
			CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		}
	}

	reportDocuments := make([]ReportDocument, len(documents))
	for i, d := range documents {
		reportDocuments[i] = ReportDocument{
			ID:        d.ID,
			Filename:  d.Filename,
			PIICount:  d.PIICount,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		}
	}

	return &Report{
		ReportType:  "blinder_audit_export",
		Version:     "1.0",
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Session: ReportSession{
			ID:        sess.ID,
			Title:     sess.Title,
			Domain:    sess.Domain,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		},
		AuditLogs:     reportLogs,
		Messages:      reportMessages,
		Documents:     reportDocuments,
		VaultStats:    vaultStats,
		IntegrityNote: integrityNote,
	}, nil
}
