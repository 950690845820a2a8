package payments

import (
	"errors"
	"sync"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the storage operations the deposit ledger needs.
// Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetDepositByIdempotencyKey(scopedKey string) (*models.Deposit, error)
	GetDepositByPaymentIntentID(paymentIntentID string) (*models.Deposit, error)
	GetLatestDepositByCreatorID(creatorID string) (*models.Deposit, error)
	CreateDeposit(deposit *models.Deposit) error
	SaveDeposit(deposit *models.Deposit) error
	IsEventProcessed(eventID string) (bool, error)
	MarkEventProcessed(eventID, eventType string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetDepositByIdempotencyKey(scopedKey string) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.Where("idempotency_key = ?", scopedKey).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *gormRepository) GetDepositByPaymentIntentID(paymentIntentID string) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.Where("payment_intent_id = ?", paymentIntentID).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *gormRepository) GetLatestDepositByCreatorID(creatorID string) (*models.Deposit, error) {
	var deposit models.Deposit
	err := r.db.Where("creator_id = ?", creatorID).Order("updated_at DESC, id DESC").First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (r *gormRepository) CreateDeposit(deposit *models.Deposit) error {
	return r.db.Create(deposit).Error
}

func (r *gormRepository) SaveDeposit(deposit *models.Deposit) error {
	return r.db.Save(deposit).Error
}

func (r *gormRepository) IsEventProcessed(eventID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ProcessedWebhookEvent{}).Where("event_id = ?", eventID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) MarkEventProcessed(eventID, eventType string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&models.ProcessedWebhookEvent{EventID: eventID, EventType: eventType}).Error
}

// MemoryRepository is the in-memory reference backing, used in tests and as
// the default when no database is configured.
type MemoryRepository struct {
	mu              sync.Mutex
	byIdempotency   map[string]*models.Deposit
	byPaymentIntent map[string]*models.Deposit
	latestByCreator map[string]*models.Deposit
	processedEvents map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byIdempotency:   make(map[string]*models.Deposit),
		byPaymentIntent: make(map[string]*models.Deposit),
		latestByCreator: make(map[string]*models.Deposit),
		processedEvents: make(map[string]struct{}),
	}
}

func (r *MemoryRepository) GetDepositByIdempotencyKey(scopedKey string) (*models.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyDeposit(r.byIdempotency[scopedKey]), nil
}

func (r *MemoryRepository) GetDepositByPaymentIntentID(paymentIntentID string) (*models.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyDeposit(r.byPaymentIntent[paymentIntentID]), nil
}

func (r *MemoryRepository) GetLatestDepositByCreatorID(creatorID string) (*models.Deposit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyDeposit(r.latestByCreator[creatorID]), nil
}

func (r *MemoryRepository) CreateDeposit(deposit *models.Deposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := copyDeposit(deposit)
	r.byIdempotency[stored.IdempotencyKey] = stored
	r.byPaymentIntent[stored.PaymentIntentID] = stored
	r.latestByCreator[stored.CreatorID] = stored
	return nil
}

func (r *MemoryRepository) SaveDeposit(deposit *models.Deposit) error {
	return r.CreateDeposit(deposit)
}

func (r *MemoryRepository) IsEventProcessed(eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processedEvents[eventID]
	return ok, nil
}

func (r *MemoryRepository) MarkEventProcessed(eventID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processedEvents[eventID] = struct{}{}
	return nil
}

func copyDeposit(d *models.Deposit) *models.Deposit {
	if d == nil {
		return nil
	}
	dup := *d
	return &dup
}
