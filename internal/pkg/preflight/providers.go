package preflight

import (
	"context"

	"github.com/StageDoorHQ/StageDoor/app/models"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/creatorstate"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
)

// LedgerPaymentProvider reads settlement state from the deposit ledger: a
// creator is settled once their latest deposit is paid.
type LedgerPaymentProvider struct {
	ledger *payments.Service
}

func NewLedgerPaymentProvider(ledger *payments.Service) *LedgerPaymentProvider {
	return &LedgerPaymentProvider{ledger: ledger}
}

func (p *LedgerPaymentProvider) SettlementState(_ context.Context, creatorIdentityID string) (string, error) {
	deposit, err := p.ledger.GetDepositByCreatorID(creatorIdentityID)
	if err != nil {
		return "", err
	}
	if deposit != nil && deposit.Status == models.DepositStatusPaid {
		return models.PaymentStateSettled, nil
	}
	return models.PaymentStateUnsettled, nil
}

func (p *LedgerPaymentProvider) FailureCode(_ context.Context, creatorIdentityID string) (string, error) {
	deposit, err := p.ledger.GetDepositByCreatorID(creatorIdentityID)
	if err != nil {
		return "", err
	}
	if deposit == nil {
		return "", nil
	}
	switch deposit.Status {
	case models.DepositStatusFailed:
		return "failed", nil
	case models.DepositStatusRefunded:
		return "refunded", nil
	default:
		return "", nil
	}
}

// StateVerificationProvider reads verification state from the webhook-driven
// composite creator state.
type StateVerificationProvider struct {
	states *creatorstate.Service
}

func NewStateVerificationProvider(states *creatorstate.Service) *StateVerificationProvider {
	return &StateVerificationProvider{states: states}
}

func (p *StateVerificationProvider) VerificationState(_ context.Context, creatorIdentityID string) (string, error) {
	state, err := p.states.Get(creatorIdentityID)
	if err != nil {
		return "", err
	}
	return state.VerificationState, nil
}

// StatePaymentProvider reads settlement from the composite creator state for
// the simplified envelope-webhook flow, without a failure-cause breakdown.
type StatePaymentProvider struct {
	states *creatorstate.Service
}

func NewStatePaymentProvider(states *creatorstate.Service) *StatePaymentProvider {
	return &StatePaymentProvider{states: states}
}

func (p *StatePaymentProvider) SettlementState(_ context.Context, creatorIdentityID string) (string, error) {
	state, err := p.states.Get(creatorIdentityID)
	if err != nil {
		return "", err
	}
	return state.PaymentState, nil
}

func (p *StatePaymentProvider) FailureCode(context.Context, string) (string, error) {
	return "", nil
}
