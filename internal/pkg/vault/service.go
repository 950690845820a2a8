package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Service is the encrypted, access-controlled store for verification
// artifacts and their sensitive metadata. Every operation emits exactly one
// audit entry, success or failure, before any error propagates.
type Service struct {
	storage   StorageClient
	repo      Repository
	audit     AuditLogger
	encryptor *Encryptor
}

// NewService wires the vault from its injected collaborators. The encryption
// key must be a base64-encoded 32-byte AES key; a bad key fails closed.
func NewService(storage StorageClient, repo Repository, audit AuditLogger, encryptionKey string) (*Service, error) {
	encryptor, err := NewEncryptor(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &Service{storage: storage, repo: repo, audit: audit, encryptor: encryptor}, nil
}

// WriteArtifact persists the artifact bytes to the content store and the
// index record to the repository. Sensitive fields, when present, are sealed
// as one encrypted bundle; they never touch storage in cleartext. The object
// is written before the index record so a crash mid-operation leaves an
// orphaned object rather than a dangling reference.
func (s *Service) WriteArtifact(ctx context.Context, actor Actor, in WriteInput) (*Record, error) {
	objectKey := ObjectKey(in.CreatorID, in.VerificationSessionID)

	if !canWrite(actor.Role) {
		s.logAudit(ctx, actor, ActionWrite, in.CreatorID, in.VerificationSessionID, objectKey, false, "forbidden")
		return nil, ErrForbidden
	}

	integrity := sha256.Sum256(in.Artifact)
	record := &Record{
		CreatorID:             in.CreatorID,
		VerificationSessionID: in.VerificationSessionID,
		ObjectKey:             objectKey,
		IntegritySHA256:       hex.EncodeToString(integrity[:]),
		Metadata:              in.Metadata,
		CreatedAt:             time.Now(),
	}

	if in.Sensitive.hasValues() {
		encrypted, err := s.encryptor.Encrypt(*in.Sensitive)
		if err != nil {
			s.logAudit(ctx, actor, ActionWrite, in.CreatorID, in.VerificationSessionID, objectKey, false, err.Error())
			return nil, err
		}
		record.EncryptedSensitive = encrypted
	}

	if err := s.storage.PutObject(ctx, objectKey, in.Artifact, in.Metadata.headers()); err != nil {
		s.logAudit(ctx, actor, ActionWrite, in.CreatorID, in.VerificationSessionID, objectKey, false, err.Error())
		return nil, err
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.logAudit(ctx, actor, ActionWrite, in.CreatorID, in.VerificationSessionID, objectKey, false, err.Error())
		return nil, err
	}

	s.logAudit(ctx, actor, ActionWrite, in.CreatorID, in.VerificationSessionID, objectKey, true, "")
	return record, nil
}

// ReadArtifact retrieves the record, artifact bytes, and transparently
// decrypted sensitive fields. Unprivileged roles are denied and audited
// without ever touching storage.
func (s *Service) ReadArtifact(ctx context.Context, actor Actor, creatorID, verificationSessionID string) (*ReadResult, error) {
	if !canRead(actor.Role) {
		s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, "", false, "forbidden")
		return nil, ErrForbidden
	}

	record, err := s.repo.Get(ctx, creatorID, verificationSessionID)
	if err != nil {
		s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, "", false, err.Error())
		return nil, err
	}
	if record == nil {
		s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, "", false, "not-found")
		return nil, ErrNotFound
	}

	artifact, err := s.storage.GetObject(ctx, record.ObjectKey)
	if err != nil {
		s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, record.ObjectKey, false, err.Error())
		return nil, err
	}

	result := &ReadResult{Record: record, Artifact: artifact}
	if record.EncryptedSensitive != nil {
		sensitive, err := s.encryptor.Decrypt(record.EncryptedSensitive)
		if err != nil {
			s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, record.ObjectKey, false, err.Error())
			return nil, err
		}
		result.Sensitive = sensitive
	}

	s.logAudit(ctx, actor, ActionRead, creatorID, verificationSessionID, record.ObjectKey, true, "")
	return result, nil
}

// DeleteArtifact removes the stored object, then the index record. A failure
// between the two steps is audited and surfaced, never swallowed, so the
// caller knows the record may still point at a deleted object.
func (s *Service) DeleteArtifact(ctx context.Context, actor Actor, creatorID, verificationSessionID string) error {
	if !canDelete(actor.Role) {
		s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, "", false, "forbidden")
		return ErrForbidden
	}

	record, err := s.repo.Get(ctx, creatorID, verificationSessionID)
	if err != nil {
		s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, "", false, err.Error())
		return err
	}
	if record == nil {
		s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, "", false, "not-found")
		return ErrNotFound
	}

	if err := s.storage.DeleteObject(ctx, record.ObjectKey); err != nil {
		s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, record.ObjectKey, false, err.Error())
		return err
	}
	if err := s.repo.Delete(ctx, creatorID, verificationSessionID); err != nil {
		s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, record.ObjectKey, false, err.Error())
		return err
	}

	s.logAudit(ctx, actor, ActionDelete, creatorID, verificationSessionID, record.ObjectKey, true, "")
	return nil
}

func (s *Service) logAudit(ctx context.Context, actor Actor, action, creatorID, verificationSessionID, objectKey string, success bool, reason string) {
	entry := AuditEntry{
		ActorID:               actor.ID,
		ActorRole:             actor.Role,
		Action:                action,
		CreatorID:             creatorID,
		VerificationSessionID: verificationSessionID,
		ObjectKey:             objectKey,
		Success:               success,
		Reason:                reason,
		Timestamp:             time.Now(),
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		log.Errorf("[Vault] failed to append audit entry for %s %s/%s: %v", action, creatorID, verificationSessionID, err)
	}
}
