package controllers

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/creatorstate"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/onboarding"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/vault"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/webhook"
)

type webhookTestEnv struct {
	app        *fiber.App
	ledger     *payments.Service
	states     *creatorstate.Service
	onboarding *onboarding.Service
	storage    *vault.MemoryStorage
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	storage := vault.NewMemoryStorage()
	vaultSvc, err := vault.NewService(storage, vault.NewMemoryRepository(), vault.NewMemoryAuditLog(), base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	ledger := payments.NewService(payments.NewMemoryRepository())
	states := creatorstate.NewService(creatorstate.NewMemoryRepository())
	onboardingSvc := onboarding.NewService(onboarding.NewMemoryRepository())
	verifier := webhook.NewVerifier(webhook.NewMemoryReplayGuard(webhook.ReplayWindow, webhook.DefaultReplayCapacity))

	ct := NewWebhookController(verifier, ledger, states, onboardingSvc, vaultSvc)

	app := fiber.New()
	app.Post("/api/webhooks/payments", ct.HandlePaymentsEnvelope)
	app.Post("/api/webhooks/veriff", ct.HandleVeriffEnvelope)
	app.Post("/api/webhooks/veriff/decision", ct.HandleVeriffDecision)
	app.Post("/api/payments/webhook", ct.HandleProviderEvent)

	return &webhookTestEnv{
		app:        app,
		ledger:     ledger,
		states:     states,
		onboarding: onboardingSvc,
		storage:    storage,
	}
}

func signedRequest(t *testing.T, path, secret, sigHeader, tsHeader string, body []byte) *http.Request {
	t.Helper()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tsHeader, timestamp)
	req.Header.Set(sigHeader, webhook.ComputeSignature(secret, timestamp, body))
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func TestPaymentsEnvelope_AppliesSettlement(t *testing.T) {
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "payments-secret")
	env := newWebhookTestEnv(t)

	body := []byte(`{"eventId":"evt-1","creatorId":"creator-1","settlementStatus":"settled","occurredAt":1756720000000}`)
	req := signedRequest(t, "/api/webhooks/payments", "payments-secret", "x-payments-signature", "x-payments-timestamp", body)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	state, err := env.states.Get("creator-1")
	require.NoError(t, err)
	assert.Equal(t, "settled", state.PaymentState)
}

func TestPaymentsEnvelope_ReplayAcknowledged(t *testing.T) {
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "payments-secret")
	env := newWebhookTestEnv(t)

	body := []byte(`{"eventId":"evt-1","creatorId":"creator-1","settlementStatus":"settled","occurredAt":1756720000000}`)

	resp, err := env.app.Test(signedRequest(t, "/api/webhooks/payments", "payments-secret", "x-payments-signature", "x-payments-timestamp", body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.app.Test(signedRequest(t, "/api/webhooks/payments", "payments-secret", "x-payments-signature", "x-payments-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decoded := decodeBody(t, resp)
	assert.Equal(t, true, decoded["duplicate"])
}

func TestPaymentsEnvelope_BadSignatureRejected(t *testing.T) {
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "payments-secret")
	env := newWebhookTestEnv(t)

	body := []byte(`{"eventId":"evt-1","creatorId":"creator-1","settlementStatus":"settled","occurredAt":1756720000000}`)
	req := signedRequest(t, "/api/webhooks/payments", "wrong-secret", "x-payments-signature", "x-payments-timestamp", body)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rejected event left no creator state behind.
	state, err := env.states.Get("creator-1")
	require.NoError(t, err)
	assert.Equal(t, "unsettled", state.PaymentState)
}

func TestVeriffEnvelope_InvalidPayloadAfterValidSignature(t *testing.T) {
	t.Setenv("VERIFF_WEBHOOK_SECRET", "veriff-secret")
	env := newWebhookTestEnv(t)

	// Valid signature but no creatorId.
	body := []byte(`{"eventId":"evt-1","status":"verified","occurredAt":1756720000000}`)
	req := signedRequest(t, "/api/webhooks/veriff", "veriff-secret", "x-veriff-signature", "x-veriff-timestamp", body)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProviderEvent_FullDepositSettlement(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "ledger-secret")
	env := newWebhookTestEnv(t)

	deposit, err := env.ledger.InitiateDeposit(payments.InitiateDepositInput{
		IdempotencyKey: "key-1", CreatorID: "creator-1", Provider: "stripe", Amount: 25, Currency: "USD",
	})
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(
		`{"id":"evt-1","type":"payment_intent.succeeded","data":{"object":{"payment_intent_id":%q,"amount":25,"currency":"usd"}}}`,
		deposit.PaymentIntentID,
	))

	resp, err := env.app.Test(signedRequest(t, "/api/payments/webhook", "ledger-secret", "x-payment-signature", "x-payment-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := env.ledger.GetDepositByCreatorID("creator-1")
	require.NoError(t, err)
	assert.Equal(t, "paid", updated.Status)

	// Redelivery of the same event id acks without reprocessing.
	resp, err = env.app.Test(signedRequest(t, "/api/payments/webhook", "ledger-secret", "x-payment-signature", "x-payment-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decoded := decodeBody(t, resp)
	assert.Equal(t, true, decoded["duplicate"])
}

func TestProviderEvent_UnknownIntent(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "ledger-secret")
	env := newWebhookTestEnv(t)

	body := []byte(`{"id":"evt-1","type":"payment_intent.succeeded","data":{"object":{"payment_intent_id":"stripe-pi-missing"}}}`)
	resp, err := env.app.Test(signedRequest(t, "/api/payments/webhook", "ledger-secret", "x-payment-signature", "x-payment-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProviderEvent_MissingSecretFailsClosed(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := []byte(`{"id":"evt-1","type":"payment_intent.succeeded","data":{"object":{"payment_intent_id":"stripe-pi-1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func veriffDecisionPayload(artifact []byte) []byte {
	payload := map[string]any{
		"eventId":   "evt-decision-1",
		"creatorId": "creator-1",
		"verification": map[string]any{
			"sessionId": "session-1",
			"status":    "approved",
		},
		"evidence": map[string]any{
			"artifact":             base64.StdEncoding.EncodeToString(artifact),
			"captureTimestamp":     "2026-09-01T10:00:00Z",
			"documentCountry":      "DE",
			"documentType":         "passport",
			"providerReferenceIds": []string{"ref-1"},
			"legalName":            "Jamie Rivera",
		},
	}
	encoded, _ := json.Marshal(payload)
	return encoded
}

func TestVeriffDecision_ArchivesAndActivates(t *testing.T) {
	t.Setenv("VERIFF_WEBHOOK_SECRET", "veriff-secret")
	env := newWebhookTestEnv(t)

	for _, to := range []string{onboarding.StatusEmailVerified, onboarding.StatusDepositPaid, onboarding.StatusVeriffStarted} {
		_, err := env.onboarding.Transition("creator-1", to, onboarding.ActorSystem, "test")
		require.NoError(t, err)
	}

	body := veriffDecisionPayload([]byte("artifact bytes"))
	resp, err := env.app.Test(signedRequest(t, "/api/webhooks/veriff/decision", "veriff-secret", "x-veriff-signature", "x-veriff-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	record, err := env.onboarding.GetRecord("creator-1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusActive, record.Status)

	// The evidence landed in the vault under the deterministic key.
	_, ok := env.storage.ObjectMetadata("verification-artifacts/creator-1/session-1")
	assert.True(t, ok)
}

func TestVeriffDecision_WrongStateConflicts(t *testing.T) {
	t.Setenv("VERIFF_WEBHOOK_SECRET", "veriff-secret")
	env := newWebhookTestEnv(t)

	// Creator is still at created; veriff_passed is an illegal skip.
	body := veriffDecisionPayload([]byte("artifact bytes"))
	resp, err := env.app.Test(signedRequest(t, "/api/webhooks/veriff/decision", "veriff-secret", "x-veriff-signature", "x-veriff-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Nothing was archived for the rejected decision.
	assert.Equal(t, 0, env.storage.Len())
}

func TestVeriffDecision_NonApprovedIgnored(t *testing.T) {
	t.Setenv("VERIFF_WEBHOOK_SECRET", "veriff-secret")
	env := newWebhookTestEnv(t)

	body := []byte(`{"eventId":"evt-decision-2","creatorId":"creator-1","verification":{"sessionId":"session-1","status":"declined"}}`)
	resp, err := env.app.Test(signedRequest(t, "/api/webhooks/veriff/decision", "veriff-secret", "x-veriff-signature", "x-veriff-timestamp", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	decoded := decodeBody(t, resp)
	assert.Equal(t, true, decoded["ignored"])

	record, err := env.onboarding.GetRecord("creator-1")
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusCreated, record.Status)
}
