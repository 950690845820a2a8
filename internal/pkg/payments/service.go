package payments

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Webhook processing outcomes for events that cause no state change.
const (
	ReasonDuplicate     = "duplicate"
	ReasonUnknownIntent = "unknown_intent"
	ReasonIgnored       = "ignored"
)

// InitiateDepositInput describes a deposit initiation request. Amount and
// currency must already be validated at the call boundary.
type InitiateDepositInput struct {
	IdempotencyKey string
	CreatorID      string
	Provider       string
	Amount         float64
	Currency       string
}

// ProviderEvent is a payment provider's webhook event after envelope parsing.
type ProviderEvent struct {
	ID   string
	Type string
	Data ProviderEventData
}

// ProviderEventData carries the payment-intent reference plus optional
// amount/currency refreshes.
type ProviderEventData struct {
	PaymentIntentID string
	Amount          *float64
	Currency        string
	CreatorID       string
}

// ProcessResult reports whether an event mutated ledger state and, if not,
// why it was acknowledged without effect.
type ProcessResult struct {
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}

// Service is the idempotent payment-intent ledger. Mutations for a given key
// are serialized so that concurrent duplicate deliveries cannot both pass the
// check-then-write sequence.
type Service struct {
	mu   sync.Mutex
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// InitiateDeposit creates a pending deposit once per (provider, idempotency
// key) scope. Repeat submissions return the original record unchanged; their
// amount and currency are ignored.
func (s *Service) InitiateDeposit(in InitiateDepositInput) (*models.Deposit, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	scopedKey := ScopeIdempotencyKey(provider, in.IdempotencyKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetDepositByIdempotencyKey(scopedKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	deposit := &models.Deposit{
		PaymentIntentID: provider + "-pi-" + uuid.NewString(),
		Provider:        provider,
		Status:          models.DepositStatusPending,
		Amount:          in.Amount,
		Currency:        normalizeCurrency(in.Currency),
		CreatorID:       in.CreatorID,
		IdempotencyKey:  scopedKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateDeposit(deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// ProcessWebhookEvent applies a verified provider event to the ledger.
// Duplicates and events for unknown intents are acknowledged without state
// change; unmapped event types are consumed so providers stop retrying them.
func (s *Service) ProcessWebhookEvent(event ProviderEvent) (ProcessResult, error) {
	if event.ID == "" || event.Data.PaymentIntentID == "" {
		return ProcessResult{}, errors.New("event id and payment_intent_id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	processed, err := s.repo.IsEventProcessed(event.ID)
	if err != nil {
		return ProcessResult{}, err
	}
	if processed {
		return ProcessResult{Processed: false, Reason: ReasonDuplicate}, nil
	}

	deposit, err := s.repo.GetDepositByPaymentIntentID(event.Data.PaymentIntentID)
	if err != nil {
		return ProcessResult{}, err
	}
	if deposit == nil {
		return ProcessResult{Processed: false, Reason: ReasonUnknownIntent}, nil
	}

	nextStatus, mapped := mapEventToStatus(event.Type)
	if !mapped {
		log.Warnf("[Payments] unmapped webhook event type %q (event %s) acknowledged without effect", event.Type, event.ID)
		if err := s.repo.MarkEventProcessed(event.ID, event.Type); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{Processed: false, Reason: ReasonIgnored}, nil
	}

	deposit.Status = nextStatus
	deposit.UpdatedAt = time.Now()
	if event.Data.Amount != nil {
		deposit.Amount = *event.Data.Amount
	}
	if strings.TrimSpace(event.Data.Currency) != "" {
		deposit.Currency = normalizeCurrency(event.Data.Currency)
	}

	if err := s.repo.SaveDeposit(deposit); err != nil {
		return ProcessResult{}, err
	}
	if err := s.repo.MarkEventProcessed(event.ID, event.Type); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{Processed: true}, nil
}

// GetDepositByCreatorID returns the most recently touched deposit for a
// creator, or nil when the creator has never initiated one.
func (s *Service) GetDepositByCreatorID(creatorID string) (*models.Deposit, error) {
	return s.repo.GetLatestDepositByCreatorID(creatorID)
}

// ScopeIdempotencyKey builds the provider-scoped idempotency key.
func ScopeIdempotencyKey(provider, key string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + ":" + strings.TrimSpace(key)
}

func mapEventToStatus(eventType string) (string, bool) {
	switch eventType {
	case "payment_intent.succeeded", "payment_intent.settled":
		return models.DepositStatusPaid, true
	case "payment_intent.payment_failed", "payment_intent.failed":
		return models.DepositStatusFailed, true
	case "charge.refunded", "payment_intent.refunded":
		return models.DepositStatusRefunded, true
	default:
		return "", false
	}
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
