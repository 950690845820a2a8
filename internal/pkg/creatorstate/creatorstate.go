package creatorstate

import (
	"errors"
	"sync"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"gorm.io/gorm"
)

// Envelope webhook providers feeding the composite state.
const (
	ProviderVeriff   = "veriff"
	ProviderPayments = "payments"
)

// Event is one provider notification. OccurredAt is the provider's event
// timestamp in epoch milliseconds, not the arrival time.
type Event struct {
	CreatorID  string
	Provider   string
	State      string
	OccurredAt int64
}

// Repository persists composite creator states. GetByCreatorID returns
// (nil, nil) for creators with no state yet.
type Repository interface {
	GetByCreatorID(creatorID string) (*models.CreatorState, error)
	Save(state *models.CreatorState) error
}

// Service keeps one convergent verification/payment state per creator using
// last-writer-wins by event timestamp, so out-of-order deliveries settle on
// the newest event's value regardless of arrival order.
type Service struct {
	mu   sync.Mutex
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply folds one provider event into the creator's state. Events older than
// the stored timestamp for their field are silently ignored.
func (s *Service) Apply(event Event) (*models.CreatorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.GetByCreatorID(event.CreatorID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = defaultState(event.CreatorID)
	}

	switch event.Provider {
	case ProviderVeriff:
		if event.OccurredAt >= state.VerificationUpdatedAt {
			state.VerificationState = parseVerificationState(event.State)
			state.VerificationUpdatedAt = event.OccurredAt
		}
	case ProviderPayments:
		if event.OccurredAt >= state.PaymentUpdatedAt {
			state.PaymentState = parsePaymentState(event.State)
			state.PaymentUpdatedAt = event.OccurredAt
		}
	default:
		return nil, errors.New("unknown creator state provider: " + event.Provider)
	}

	if err := s.repo.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get returns the creator's composite state, or the unverified/unsettled
// default when none has been recorded.
func (s *Service) Get(creatorID string) (*models.CreatorState, error) {
	state, err := s.repo.GetByCreatorID(creatorID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return defaultState(creatorID), nil
	}
	return state, nil
}

func defaultState(creatorID string) *models.CreatorState {
	return &models.CreatorState{
		CreatorID:         creatorID,
		VerificationState: models.VerificationStateUnverified,
		PaymentState:      models.PaymentStateUnsettled,
	}
}

func parseVerificationState(raw string) string {
	if raw == models.VerificationStateVerified {
		return models.VerificationStateVerified
	}
	return models.VerificationStateUnverified
}

func parsePaymentState(raw string) string {
	if raw == models.PaymentStateSettled {
		return models.PaymentStateSettled
	}
	return models.PaymentStateUnsettled
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a creator-state repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByCreatorID(creatorID string) (*models.CreatorState, error) {
	var state models.CreatorState
	err := r.db.Where("creator_id = ?", creatorID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *gormRepository) Save(state *models.CreatorState) error {
	return r.db.Save(state).Error
}

// MemoryRepository is the in-memory reference backing.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]*models.CreatorState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: make(map[string]*models.CreatorState)}
}

func (r *MemoryRepository) GetByCreatorID(creatorID string) (*models.CreatorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[creatorID]
	if !ok {
		return nil, nil
	}
	dup := *state
	return &dup, nil
}

func (r *MemoryRepository) Save(state *models.CreatorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *state
	r.states[state.CreatorID] = &dup
	return nil
}
