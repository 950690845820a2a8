package creatorstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StageDoorHQ/StageDoor/app/models"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository())
}

func TestGet_DefaultState(t *testing.T) {
	svc := newTestService()

	state, err := svc.Get("creator-1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateUnverified, state.VerificationState)
	assert.Equal(t, models.PaymentStateUnsettled, state.PaymentState)
}

func TestApply_UpdatesPerProviderField(t *testing.T) {
	svc := newTestService()

	state, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderVeriff, State: models.VerificationStateVerified, OccurredAt: 100})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateVerified, state.VerificationState)
	assert.Equal(t, models.PaymentStateUnsettled, state.PaymentState)

	state, err = svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderPayments, State: models.PaymentStateSettled, OccurredAt: 200})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateVerified, state.VerificationState)
	assert.Equal(t, models.PaymentStateSettled, state.PaymentState)
}

func TestApply_OutOfOrderDeliveryKeepsNewest(t *testing.T) {
	svc := newTestService()

	// The newer "verified" event arrives first.
	_, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderVeriff, State: models.VerificationStateVerified, OccurredAt: 300})
	require.NoError(t, err)

	// The older "unverified" event arrives late and must not win.
	state, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderVeriff, State: models.VerificationStateUnverified, OccurredAt: 100})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateVerified, state.VerificationState)
	assert.Equal(t, int64(300), state.VerificationUpdatedAt)
}

func TestApply_EqualTimestampTakesLatestDelivery(t *testing.T) {
	svc := newTestService()

	_, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderPayments, State: models.PaymentStateSettled, OccurredAt: 100})
	require.NoError(t, err)

	state, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderPayments, State: models.PaymentStateUnsettled, OccurredAt: 100})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStateUnsettled, state.PaymentState)
}

func TestApply_ProvidersDoNotInterfere(t *testing.T) {
	svc := newTestService()

	_, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderPayments, State: models.PaymentStateSettled, OccurredAt: 500})
	require.NoError(t, err)

	// An older veriff event still lands because timestamps are per field.
	state, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderVeriff, State: models.VerificationStateVerified, OccurredAt: 100})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateVerified, state.VerificationState)
	assert.Equal(t, models.PaymentStateSettled, state.PaymentState)
}

func TestApply_UnknownProvider(t *testing.T) {
	svc := newTestService()

	_, err := svc.Apply(Event{CreatorID: "creator-1", Provider: "paypal", State: "settled", OccurredAt: 100})
	require.Error(t, err)
}

func TestApply_UnknownStateNormalized(t *testing.T) {
	svc := newTestService()

	state, err := svc.Apply(Event{CreatorID: "creator-1", Provider: ProviderVeriff, State: "approved?", OccurredAt: 100})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStateUnverified, state.VerificationState)
}
