package vault

import (
	"errors"
	"strings"
	"time"
)

// Actor roles. Write is permissive for any non-empty role so ingestion is
// never blocked; read and delete are restricted to privileged roles.
type Role string

const (
	RoleCreator    Role = "creator"
	RoleAdmin      Role = "admin"
	RoleCompliance Role = "compliance"
	RoleSystem     Role = "system"
)

// Actor is whoever is touching identity evidence.
type Actor struct {
	ID   string
	Role Role
}

// Capability predicates. Policy lives here once; new roles change one line.
func canWrite(role Role) bool {
	return role != ""
}

func canRead(role Role) bool {
	return role == RoleAdmin || role == RoleCompliance || role == RoleSystem
}

func canDelete(role Role) bool {
	return role == RoleAdmin || role == RoleCompliance || role == RoleSystem
}

// Vault operation actions for audit entries.
const (
	ActionWrite  = "write"
	ActionRead   = "read"
	ActionDelete = "delete"
)

var (
	ErrForbidden = errors.New("actor is not allowed to perform this vault operation")
	ErrNotFound  = errors.New("vault artifact not found")
)

// Metadata is the non-sensitive description of a verification artifact. It is
// projected onto storage headers and stored in cleartext on the index record.
type Metadata struct {
	CaptureTimestamp     string   `json:"capture_timestamp"`
	DocumentCountry      string   `json:"document_country"`
	DocumentType         string   `json:"document_type"`
	VerificationDecision string   `json:"verification_decision"`
	ProviderReferenceIDs []string `json:"provider_reference_ids"`
}

// headers projects metadata onto storage-layer object headers: kebab-cased
// names, arrays flattened to comma-joined strings.
func (m Metadata) headers() map[string]string {
	return map[string]string{
		"capture-timestamp":      m.CaptureTimestamp,
		"document-country":       m.DocumentCountry,
		"document-type":          m.DocumentType,
		"verification-decision":  m.VerificationDecision,
		"provider-reference-ids": strings.Join(m.ProviderReferenceIDs, ","),
	}
}

// SensitiveFields is the bundle of personal data encrypted as one unit.
// Individual fields are never stored or encrypted separately.
type SensitiveFields struct {
	PIIPointer  string `json:"piiPointer,omitempty"`
	LegalName   string `json:"legalName,omitempty"`
	DOBFragment string `json:"dobFragment,omitempty"`
}

func (f *SensitiveFields) hasValues() bool {
	return f != nil && (f.PIIPointer != "" || f.LegalName != "" || f.DOBFragment != "")
}

// EncryptedPayload is the AES-256-GCM envelope for a sensitive bundle.
// All three parts are base64.
type EncryptedPayload struct {
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Ciphertext string `json:"ciphertext"`
}

// Record is the vault index row for one stored artifact.
type Record struct {
	CreatorID             string            `json:"creator_id"`
	VerificationSessionID string            `json:"verification_session_id"`
	ObjectKey             string            `json:"object_key"`
	IntegritySHA256       string            `json:"integrity_sha256"`
	Metadata              Metadata          `json:"metadata"`
	EncryptedSensitive    *EncryptedPayload `json:"-"`
	CreatedAt             time.Time         `json:"created_at"`
}

// WriteInput describes one artifact ingestion.
type WriteInput struct {
	CreatorID             string
	VerificationSessionID string
	Artifact              []byte
	Metadata              Metadata
	Sensitive             *SensitiveFields
}

// ReadResult is a successful artifact retrieval with sensitive fields
// decrypted transparently when present.
type ReadResult struct {
	Record    *Record
	Artifact  []byte
	Sensitive *SensitiveFields
}

// ObjectKey is the deterministic content-store key for an artifact.
func ObjectKey(creatorID, verificationSessionID string) string {
	return "verification-artifacts/" + creatorID + "/" + verificationSessionID
}
