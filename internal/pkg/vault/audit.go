package vault

import (
	"context"
	"sync"
	"time"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"gorm.io/gorm"
)

// AuditEntry is the forensic record of one vault operation, success or not.
type AuditEntry struct {
	ActorID               string    `json:"actorId"`
	ActorRole             Role      `json:"actorRole"`
	Action                string    `json:"action"`
	CreatorID             string    `json:"creatorId"`
	VerificationSessionID string    `json:"verificationSessionId"`
	ObjectKey             string    `json:"objectKey,omitempty"`
	Success               bool      `json:"success"`
	Reason                string    `json:"reason,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}

// AuditLogger receives one entry per vault operation. Implementations must be
// append-only; a production deployment should back this with a durable,
// write-once log.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry) error
}

// MemoryAuditLog is the in-memory placeholder logger.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Log(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a snapshot of the logged entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

// GormAuditLog persists audit entries as insert-only rows.
type GormAuditLog struct {
	db *gorm.DB
}

func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

func (l *GormAuditLog) Log(_ context.Context, entry AuditEntry) error {
	return l.db.Create(&models.VaultAuditEntry{
		ActorID:               entry.ActorID,
		ActorRole:             string(entry.ActorRole),
		Action:                entry.Action,
		CreatorID:             entry.CreatorID,
		VerificationSessionID: entry.VerificationSessionID,
		ObjectKey:             entry.ObjectKey,
		Success:               entry.Success,
		Reason:                entry.Reason,
		Timestamp:             entry.Timestamp,
	}).Error
}
