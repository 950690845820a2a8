package preflight

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
)

// Failure gates and codes.
const (
	GatePayment      = "payment"
	GateVerification = "verification"

	CodePaymentUnsettled   = "PAYMENT_UNSETTLED"
	CodePaymentFailed      = "PAYMENT_FAILED"
	CodePaymentRefunded    = "PAYMENT_REFUNDED"
	CodeIdentityUnverified = "IDENTITY_UNVERIFIED"
)

const (
	messagePaymentUnsettled   = "Payment settlement is not complete for this creator identity."
	messagePaymentFailed      = "The verification deposit failed. Retry the payment to continue."
	messagePaymentRefunded    = "The verification deposit was refunded. Submit a new payment to continue."
	messageIdentityUnverified = "Creator identity verification is incomplete."
)

// PaymentProvider exposes a creator's settlement state. FailureCode is asked
// only when the state is unsettled; it returns "failed", "refunded", or ""
// when no specific retryable cause is known.
type PaymentProvider interface {
	SettlementState(ctx context.Context, creatorIdentityID string) (string, error)
	FailureCode(ctx context.Context, creatorIdentityID string) (string, error)
}

// VerificationProvider exposes a creator's identity verification state.
type VerificationProvider interface {
	VerificationState(ctx context.Context, creatorIdentityID string) (string, error)
}

// Failure is one gate's structured denial.
type Failure struct {
	Gate    string `json:"gate"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the composite decision. OK is true iff Failures is empty; the
// gate never partially passes.
type Result struct {
	OK       bool      `json:"ok"`
	Failures []Failure `json:"failures"`
}

// Gate composes payment and verification provider state into one pass/fail
// authorization decision, run immediately before privileged actions.
type Gate struct {
	payments     PaymentProvider
	verification VerificationProvider
}

func NewGate(payments PaymentProvider, verification VerificationProvider) *Gate {
	return &Gate{payments: payments, verification: verification}
}

// Evaluate looks up both provider states concurrently. An error from either
// lookup fails the whole evaluation; a timeout is never an implicit pass.
// Failures are ordered payment gate first, then verification gate.
func (g *Gate) Evaluate(ctx context.Context, creatorIdentityID string) (Result, error) {
	var settlementState, verificationState string

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		state, err := g.payments.SettlementState(groupCtx, creatorIdentityID)
		settlementState = state
		return err
	})
	group.Go(func() error {
		state, err := g.verification.VerificationState(groupCtx, creatorIdentityID)
		verificationState = state
		return err
	})
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	failures := make([]Failure, 0, 2)
	if settlementState != "settled" {
		failures = append(failures, g.paymentFailure(ctx, creatorIdentityID))
	}
	if verificationState != "verified" {
		failures = append(failures, Failure{
			Gate:    GateVerification,
			Code:    CodeIdentityUnverified,
			Message: messageIdentityUnverified,
		})
	}

	return Result{OK: len(failures) == 0, Failures: failures}, nil
}

// paymentFailure refines an unsettled payment into an actionable code.
// Unrecognized or unavailable causes default to pending settlement.
func (g *Gate) paymentFailure(ctx context.Context, creatorIdentityID string) Failure {
	code, err := g.payments.FailureCode(ctx, creatorIdentityID)
	if err != nil {
		log.Warnf("[Preflight] payment failure-code lookup for %s failed: %v", creatorIdentityID, err)
		code = ""
	}

	switch code {
	case "failed":
		return Failure{Gate: GatePayment, Code: CodePaymentFailed, Message: messagePaymentFailed}
	case "refunded":
		return Failure{Gate: GatePayment, Code: CodePaymentRefunded, Message: messagePaymentRefunded}
	default:
		return Failure{Gate: GatePayment, Code: CodePaymentUnsettled, Message: messagePaymentUnsettled}
	}
}
