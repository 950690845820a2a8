package preflight

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPaymentProvider struct {
	state       string
	failureCode string
	err         error
	codeErr     error
	delay       time.Duration
	calls       int32
}

func (p *stubPaymentProvider) SettlementState(ctx context.Context, _ string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.state, p.err
}

func (p *stubPaymentProvider) FailureCode(context.Context, string) (string, error) {
	return p.failureCode, p.codeErr
}

type stubVerificationProvider struct {
	state string
	err   error
	delay time.Duration
	calls int32
}

func (p *stubVerificationProvider) VerificationState(ctx context.Context, _ string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.state, p.err
}

func TestEvaluate_AllClear(t *testing.T) {
	gate := NewGate(
		&stubPaymentProvider{state: "settled"},
		&stubVerificationProvider{state: "verified"},
	)

	result, err := gate.Evaluate(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Empty(t, result.Failures)
}

func TestEvaluate_FailureOrderingAndCodes(t *testing.T) {
	gate := NewGate(
		&stubPaymentProvider{state: "unsettled"},
		&stubVerificationProvider{state: "unverified"},
	)

	result, err := gate.Evaluate(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.False(t, result.OK)
	require.Len(t, result.Failures, 2)

	// Payment gate always reports first.
	assert.Equal(t, GatePayment, result.Failures[0].Gate)
	assert.Equal(t, CodePaymentUnsettled, result.Failures[0].Code)
	assert.Equal(t, GateVerification, result.Failures[1].Gate)
	assert.Equal(t, CodeIdentityUnverified, result.Failures[1].Code)
	for _, f := range result.Failures {
		assert.NotEmpty(t, f.Message)
	}
}

func TestEvaluate_PaymentFailureRefinement(t *testing.T) {
	tests := []struct {
		name        string
		failureCode string
		codeErr     error
		want        string
	}{
		{name: "failed deposit", failureCode: "failed", want: CodePaymentFailed},
		{name: "refunded deposit", failureCode: "refunded", want: CodePaymentRefunded},
		{name: "no known cause", failureCode: "", want: CodePaymentUnsettled},
		{name: "lookup error defaults to unsettled", codeErr: errors.New("boom"), want: CodePaymentUnsettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(
				&stubPaymentProvider{state: "unsettled", failureCode: tt.failureCode, codeErr: tt.codeErr},
				&stubVerificationProvider{state: "verified"},
			)

			result, err := gate.Evaluate(context.Background(), "creator-1")
			require.NoError(t, err)
			require.Len(t, result.Failures, 1)
			assert.Equal(t, tt.want, result.Failures[0].Code)
		})
	}
}

func TestEvaluate_SingleGateFailure(t *testing.T) {
	gate := NewGate(
		&stubPaymentProvider{state: "settled"},
		&stubVerificationProvider{state: "unverified"},
	)

	result, err := gate.Evaluate(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.False(t, result.OK)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, CodeIdentityUnverified, result.Failures[0].Code)
}

func TestEvaluate_ProviderErrorFailsEvaluation(t *testing.T) {
	gate := NewGate(
		&stubPaymentProvider{err: errors.New("ledger unavailable")},
		&stubVerificationProvider{state: "verified"},
	)

	_, err := gate.Evaluate(context.Background(), "creator-1")
	require.Error(t, err)

	gate = NewGate(
		&stubPaymentProvider{state: "settled"},
		&stubVerificationProvider{err: errors.New("state store unavailable")},
	)
	_, err = gate.Evaluate(context.Background(), "creator-1")
	require.Error(t, err)
}

func TestEvaluate_ContextCancellation(t *testing.T) {
	gate := NewGate(
		&stubPaymentProvider{state: "settled", delay: time.Second},
		&stubVerificationProvider{state: "verified", delay: time.Second},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gate.Evaluate(ctx, "creator-1")
	require.Error(t, err)
}

func TestEvaluate_QueriesBothProviders(t *testing.T) {
	payment := &stubPaymentProvider{state: "settled"}
	verification := &stubVerificationProvider{state: "verified"}
	gate := NewGate(payment, verification)

	_, err := gate.Evaluate(context.Background(), "creator-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&payment.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&verification.calls))
}
