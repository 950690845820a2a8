package vault

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"gorm.io/gorm"
)

// Repository indexes vault records by (creatorID, verificationSessionID).
// Get returns (nil, nil) when no record exists.
type Repository interface {
	Save(ctx context.Context, record *Record) error
	Get(ctx context.Context, creatorID, verificationSessionID string) (*Record, error)
	Delete(ctx context.Context, creatorID, verificationSessionID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a vault record repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Save(_ context.Context, record *Record) error {
	row := toRow(record)
	return r.db.Save(row).Error
}

func (r *gormRepository) Get(_ context.Context, creatorID, verificationSessionID string) (*Record, error) {
	var row models.VaultRecord
	err := r.db.Where("creator_id = ? AND verification_session_id = ?", creatorID, verificationSessionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row), nil
}

func (r *gormRepository) Delete(_ context.Context, creatorID, verificationSessionID string) error {
	return r.db.Where("creator_id = ? AND verification_session_id = ?", creatorID, verificationSessionID).
		Delete(&models.VaultRecord{}).Error
}

func toRow(record *Record) *models.VaultRecord {
	row := &models.VaultRecord{
		CreatorID:             record.CreatorID,
		VerificationSessionID: record.VerificationSessionID,
		ObjectKey:             record.ObjectKey,
		IntegritySHA256:       record.IntegritySHA256,
		CaptureTimestamp:      record.Metadata.CaptureTimestamp,
		DocumentCountry:       record.Metadata.DocumentCountry,
		DocumentType:          record.Metadata.DocumentType,
		VerificationDecision:  record.Metadata.VerificationDecision,
		ProviderReferenceIDs:  strings.Join(record.Metadata.ProviderReferenceIDs, ","),
		CreatedAt:             record.CreatedAt,
	}
	if record.EncryptedSensitive != nil {
		row.EncryptedIV = record.EncryptedSensitive.IV
		row.EncryptedAuthTag = record.EncryptedSensitive.AuthTag
		row.EncryptedCiphertext = record.EncryptedSensitive.Ciphertext
	}
	return row
}

func fromRow(row *models.VaultRecord) *Record {
	record := &Record{
		CreatorID:             row.CreatorID,
		VerificationSessionID: row.VerificationSessionID,
		ObjectKey:             row.ObjectKey,
		IntegritySHA256:       row.IntegritySHA256,
		Metadata: Metadata{
			CaptureTimestamp:     row.CaptureTimestamp,
			DocumentCountry:      row.DocumentCountry,
			DocumentType:         row.DocumentType,
			VerificationDecision: row.VerificationDecision,
		},
		CreatedAt: row.CreatedAt,
	}
	if row.ProviderReferenceIDs != "" {
		record.Metadata.ProviderReferenceIDs = strings.Split(row.ProviderReferenceIDs, ",")
	}
	if row.EncryptedCiphertext != "" {
		record.EncryptedSensitive = &EncryptedPayload{
			IV:         row.EncryptedIV,
			AuthTag:    row.EncryptedAuthTag,
			Ciphertext: row.EncryptedCiphertext,
		}
	}
	return record
}

// MemoryRepository is the in-memory reference backing.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*Record)}
}

func (r *MemoryRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *record
	r.records[record.CreatorID+":"+record.VerificationSessionID] = &dup
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, creatorID, verificationSessionID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[creatorID+":"+verificationSessionID]
	if !ok {
		return nil, nil
	}
	dup := *record
	return &dup, nil
}

func (r *MemoryRepository) Delete(_ context.Context, creatorID, verificationSessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, creatorID+":"+verificationSessionID)
	return nil
}
