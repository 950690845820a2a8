package onboarding

import (
	"fmt"
	"sync"
	"time"

	"github.com/StageDoorHQ/StageDoor/app/models"
)

// Onboarding statuses, in progression order. Active is terminal.
const (
	StatusCreated       = "created"
	StatusEmailVerified = "email_verified"
	StatusDepositPaid   = "deposit_paid"
	StatusVeriffStarted = "veriff_started"
	StatusVeriffPassed  = "veriff_passed"
	StatusVaultArchived = "vault_archived"
	StatusActive        = "active"
)

// Transition actors.
const (
	ActorSystem  = "system"
	ActorWebhook = "webhook"
	ActorUser    = "user"
)

// allowedTransitions is the fixed graph: a strict chain with no skipping and
// no cycles.
var allowedTransitions = map[string][]string{
	StatusCreated:       {StatusEmailVerified},
	StatusEmailVerified: {StatusDepositPaid},
	StatusDepositPaid:   {StatusVeriffStarted},
	StatusVeriffStarted: {StatusVeriffPassed},
	StatusVeriffPassed:  {StatusVaultArchived},
	StatusVaultArchived: {StatusActive},
	StatusActive:        {},
}

// InvalidTransitionError identifies the illegal edge that was attempted.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid onboarding transition: %s -> %s", e.From, e.To)
}

// NotActiveError reports a privileged action attempted before activation.
type NotActiveError struct {
	CreatorID string
	Status    string
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("creator %s is not active (current status: %s)", e.CreatorID, e.Status)
}

// CanTransition reports whether the edge from -> to exists in the graph.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[ParseStatus(from)] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus maps untrusted input onto the status set, defaulting anything
// unknown to the initial status rather than failing.
func ParseStatus(raw string) string {
	if _, ok := allowedTransitions[raw]; ok {
		return raw
	}
	return StatusCreated
}

// Repository persists onboarding records with their transition trails.
// GetByCreatorID returns (nil, nil) when the creator has never been seen.
type Repository interface {
	GetByCreatorID(creatorID string) (*models.CreatorOnboarding, error)
	Create(record *models.CreatorOnboarding) error
	AppendTransition(record *models.CreatorOnboarding, transition models.OnboardingTransition) error
}

// Service owns the per-creator onboarding state machine. All mutations run
// under one critical section so a check-then-write cannot race a concurrent
// delivery for the same creator.
type Service struct {
	mu   sync.Mutex
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetRecord returns the creator's onboarding record, lazily creating it at
// the initial status with a synthetic transition on first access.
func (s *Service) GetRecord(creatorID string) (*models.CreatorOnboarding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(creatorID)
}

// Transition advances the creator's status along one edge of the graph,
// appending an audit entry. The record is untouched when the edge is illegal.
func (s *Service) Transition(creatorID, to, actor, source string) (*models.CreatorOnboarding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreate(creatorID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(record.Status, to) {
		return nil, &InvalidTransitionError{From: record.Status, To: to}
	}

	transition := models.OnboardingTransition{
		CreatorOnboardingID: record.ID,
		FromStatus:          record.Status,
		ToStatus:            to,
		OccurredAt:          time.Now(),
		Actor:               actor,
		Source:              source,
	}

	record.Status = to
	record.Transitions = append(record.Transitions, transition)
	if err := s.repo.AppendTransition(record, transition); err != nil {
		return nil, err
	}
	return record, nil
}

// AssertActive fails unless the creator has completed the full progression.
// Used as the hard gate before privileged dashboard actions.
func (s *Service) AssertActive(creatorID string) error {
	record, err := s.GetRecord(creatorID)
	if err != nil {
		return err
	}
	if record.Status != StatusActive {
		return &NotActiveError{CreatorID: creatorID, Status: record.Status}
	}
	return nil
}

func (s *Service) getOrCreate(creatorID string) (*models.CreatorOnboarding, error) {
	record, err := s.repo.GetByCreatorID(creatorID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	record = &models.CreatorOnboarding{
		CreatorID: creatorID,
		Status:    StatusCreated,
		Transitions: []models.OnboardingTransition{{
			FromStatus: "",
			ToStatus:   StatusCreated,
			OccurredAt: time.Now(),
			Actor:      ActorSystem,
			Source:     ActorSystem,
		}},
	}
	if err := s.repo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}
