package onboarding

import (
	"errors"
	"sync"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an onboarding repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByCreatorID(creatorID string) (*models.CreatorOnboarding, error) {
	var record models.CreatorOnboarding
	err := r.db.Preload("Transitions", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("creator_id = ?", creatorID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormRepository) Create(record *models.CreatorOnboarding) error {
	return r.db.Create(record).Error
}

func (r *gormRepository) AppendTransition(record *models.CreatorOnboarding, transition models.OnboardingTransition) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		transition.CreatorOnboardingID = record.ID
		if err := tx.Create(&transition).Error; err != nil {
			return err
		}
		return tx.Model(&models.CreatorOnboarding{}).
			Where("id = ?", record.ID).
			Update("status", record.Status).Error
	})
}

// MemoryRepository is the in-memory reference backing.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.CreatorOnboarding
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*models.CreatorOnboarding)}
}

func (r *MemoryRepository) GetByCreatorID(creatorID string) (*models.CreatorOnboarding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[creatorID]
	if !ok {
		return nil, nil
	}
	return copyRecord(record), nil
}

func (r *MemoryRepository) Create(record *models.CreatorOnboarding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.CreatorID] = copyRecord(record)
	return nil
}

func (r *MemoryRepository) AppendTransition(record *models.CreatorOnboarding, transition models.OnboardingTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[record.CreatorID]
	if !ok {
		return errors.New("onboarding record not found")
	}
	stored.Status = record.Status
	stored.Transitions = append(stored.Transitions, transition)
	return nil
}

func copyRecord(record *models.CreatorOnboarding) *models.CreatorOnboarding {
	dup := *record
	dup.Transitions = append([]models.OnboardingTransition(nil), record.Transitions...)
	return &dup
}
