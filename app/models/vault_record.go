package models

import "time"

// VaultRecord is the index/metadata row for a stored verification artifact.
// The artifact bytes themselves live in the object store under ObjectKey.
// Sensitive fields are stored only as one AES-256-GCM envelope; the three
// Encrypted* columns are empty when no sensitive fields were supplied.
type VaultRecord struct {
	ID                    uint      `gorm:"primaryKey" json:"-"`
	CreatorID             string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_vault_records_creator_session,priority:1" json:"creator_id"`
	VerificationSessionID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_vault_records_creator_session,priority:2" json:"verification_session_id"`
	ObjectKey             string    `gorm:"type:varchar(500);not null" json:"object_key"`
	IntegritySHA256       string    `gorm:"type:char(64);not null" json:"integrity_sha256"`
	CaptureTimestamp      string    `gorm:"type:varchar(40)" json:"capture_timestamp"`
	DocumentCountry       string    `gorm:"type:varchar(10)" json:"document_country"`
	DocumentType          string    `gorm:"type:varchar(50)" json:"document_type"`
	VerificationDecision  string    `gorm:"type:varchar(50)" json:"verification_decision"`
	ProviderReferenceIDs  string    `gorm:"type:text" json:"provider_reference_ids"`
	EncryptedIV           string    `gorm:"type:varchar(32)" json:"-"`
	EncryptedAuthTag      string    `gorm:"type:varchar(32)" json:"-"`
	EncryptedCiphertext   string    `gorm:"type:text" json:"-"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// VaultAuditEntry is the forensic record of every vault access. Append-only:
// rows are only ever inserted, never updated or deleted.
type VaultAuditEntry struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ActorID               string    `gorm:"type:varchar(191);not null" json:"actor_id"`
	ActorRole             string    `gorm:"type:varchar(20);not null" json:"actor_role"`
	Action                string    `gorm:"type:varchar(10);not null" json:"action"`
	CreatorID             string    `gorm:"type:varchar(191);not null;index" json:"creator_id"`
	VerificationSessionID string    `gorm:"type:varchar(191);not null" json:"verification_session_id"`
	ObjectKey             string    `gorm:"type:varchar(500)" json:"object_key,omitempty"`
	Success               bool      `gorm:"not null" json:"success"`
	Reason                string    `gorm:"type:varchar(255)" json:"reason,omitempty"`
	Timestamp             time.Time `gorm:"not null;index" json:"timestamp"`
}
