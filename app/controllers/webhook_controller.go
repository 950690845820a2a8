package controllers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/creatorstate"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/env"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/onboarding"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/vault"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/webhook"
)

// WebhookController ingests signed notifications from the payment and
// identity-verification providers.
type WebhookController struct {
	verifier   *webhook.Verifier
	ledger     *payments.Service
	states     *creatorstate.Service
	onboarding *onboarding.Service
	vault      *vault.Service
}

func NewWebhookController(
	verifier *webhook.Verifier,
	ledger *payments.Service,
	states *creatorstate.Service,
	onboardingSvc *onboarding.Service,
	vaultSvc *vault.Service,
) *WebhookController {
	return &WebhookController{
		verifier:   verifier,
		ledger:     ledger,
		states:     states,
		onboarding: onboardingSvc,
		vault:      vaultSvc,
	}
}

type envelopeBody struct {
	EventID    string `json:"eventId"`
	CreatorID  string `json:"creatorId"`
	Status     string `json:"status"`
	Settlement string `json:"settlementStatus"`
	OccurredAt *int64 `json:"occurredAt"`
}

// HandlePaymentsEnvelope folds a payment provider settlement notification
// into the composite creator state.
func (ct *WebhookController) HandlePaymentsEnvelope(c *fiber.Ctx) error {
	return ct.handleEnvelope(c, creatorstate.ProviderPayments, "x-payments-signature", "x-payments-timestamp", "PAYMENTS_WEBHOOK_SECRET")
}

// HandleVeriffEnvelope folds an identity provider verification notification
// into the composite creator state.
func (ct *WebhookController) HandleVeriffEnvelope(c *fiber.Ctx) error {
	return ct.handleEnvelope(c, creatorstate.ProviderVeriff, "x-veriff-signature", "x-veriff-timestamp", "VERIFF_WEBHOOK_SECRET")
}

func (ct *WebhookController) handleEnvelope(c *fiber.Ctx, provider, signatureHeader, timestampHeader, secretEnv string) error {
	rawBody := append([]byte(nil), c.Body()...)

	var body envelopeBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		logSecurityEvent(provider, "invalid-json", "", c.Get(timestampHeader))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body."})
	}

	result, err := ct.verifier.Verify(c.Context(), webhook.VerifyInput{
		Provider:     provider,
		RawBody:      rawBody,
		Signature:    c.Get(signatureHeader),
		Timestamp:    c.Get(timestampHeader),
		EventID:      strings.TrimSpace(body.EventID),
		SharedSecret: env.GetEnv(secretEnv, ""),
	})
	if err != nil {
		log.Errorf("[Webhook] replay store failure for %s: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook verification unavailable."})
	}
	if !result.OK {
		if result.Reason == webhook.ReasonDuplicateEvent {
			return c.JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		logSecurityEvent(provider, result.Reason, body.EventID, c.Get(timestampHeader))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Webhook verification failed."})
	}

	if strings.TrimSpace(body.CreatorID) == "" || body.OccurredAt == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook payload."})
	}

	state := body.Status
	if provider == creatorstate.ProviderPayments {
		state = body.Settlement
	}

	nextState, err := ct.states.Apply(creatorstate.Event{
		CreatorID:  strings.TrimSpace(body.CreatorID),
		Provider:   provider,
		State:      state,
		OccurredAt: *body.OccurredAt,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to apply webhook event."})
	}

	return c.JSON(fiber.Map{"ok": true, "creatorState": nextState})
}

type providerEventBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			PaymentIntentID string   `json:"payment_intent_id"`
			Amount          *float64 `json:"amount"`
			Currency        string   `json:"currency"`
			CreatorID       string   `json:"creator_id"`
		} `json:"object"`
	} `json:"data"`
}

// HandleProviderEvent applies a payment provider event to the deposit ledger.
func (ct *WebhookController) HandleProviderEvent(c *fiber.Ctx) error {
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")
	if secret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Missing PAYMENT_WEBHOOK_SECRET configuration."})
	}

	rawBody := append([]byte(nil), c.Body()...)

	var body providerEventBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		logSecurityEvent("payment", "invalid-json", "", c.Get("x-payment-timestamp"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body."})
	}

	result, err := ct.verifier.Verify(c.Context(), webhook.VerifyInput{
		Provider:     "payment",
		RawBody:      rawBody,
		Signature:    c.Get("x-payment-signature"),
		Timestamp:    c.Get("x-payment-timestamp"),
		EventID:      strings.TrimSpace(body.ID),
		SharedSecret: secret,
	})
	if err != nil {
		log.Errorf("[Webhook] replay store failure for payment: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook verification unavailable."})
	}
	if !result.OK && result.Reason != webhook.ReasonDuplicateEvent {
		logSecurityEvent("payment", result.Reason, body.ID, c.Get("x-payment-timestamp"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Webhook verification failed."})
	}

	eventType := strings.TrimSpace(body.Type)
	paymentIntentID := strings.TrimSpace(body.Data.Object.PaymentIntentID)
	if strings.TrimSpace(body.ID) == "" || eventType == "" || paymentIntentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook event payload."})
	}

	outcome, err := ct.ledger.ProcessWebhookEvent(payments.ProviderEvent{
		ID:   strings.TrimSpace(body.ID),
		Type: eventType,
		Data: payments.ProviderEventData{
			PaymentIntentID: paymentIntentID,
			Amount:          body.Data.Object.Amount,
			Currency:        body.Data.Object.Currency,
			CreatorID:       body.Data.Object.CreatorID,
		},
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook event."})
	}

	switch outcome.Reason {
	case payments.ReasonDuplicate:
		return c.JSON(fiber.Map{"ok": true, "duplicate": true})
	case payments.ReasonUnknownIntent:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown payment intent."})
	default:
		return c.JSON(fiber.Map{"ok": true, "processed": outcome.Processed})
	}
}

type veriffDecisionBody struct {
	EventID      string `json:"eventId"`
	CreatorID    string `json:"creatorId"`
	Verification struct {
		SessionID string `json:"sessionId"`
		Status    string `json:"status"`
	} `json:"verification"`
	Evidence *struct {
		Artifact             string   `json:"artifact"`
		CaptureTimestamp     string   `json:"captureTimestamp"`
		DocumentCountry      string   `json:"documentCountry"`
		DocumentType         string   `json:"documentType"`
		ProviderReferenceIDs []string `json:"providerReferenceIds"`
		PIIPointer           string   `json:"piiPointer"`
		LegalName            string   `json:"legalName"`
		DOBFragment          string   `json:"dobFragment"`
	} `json:"evidence"`
}

// HandleVeriffDecision is the identity-verification completion path: on an
// approved decision it archives the evidence into the vault and advances the
// creator through veriff_passed, vault_archived, and active.
func (ct *WebhookController) HandleVeriffDecision(c *fiber.Ctx) error {
	secret := env.GetEnv("VERIFF_WEBHOOK_SECRET", "")
	if secret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "VERIFF_WEBHOOK_SECRET is not configured."})
	}

	rawBody := append([]byte(nil), c.Body()...)

	var body veriffDecisionBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		logSecurityEvent("veriff", "invalid-json", "", c.Get("x-veriff-timestamp"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook payload."})
	}

	result, err := ct.verifier.Verify(c.Context(), webhook.VerifyInput{
		Provider:     "veriff-decision",
		RawBody:      rawBody,
		Signature:    c.Get("x-veriff-signature"),
		Timestamp:    c.Get("x-veriff-timestamp"),
		EventID:      strings.TrimSpace(body.EventID),
		SharedSecret: secret,
	})
	if err != nil {
		log.Errorf("[Webhook] replay store failure for veriff decision: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook verification unavailable."})
	}
	if !result.OK {
		if result.Reason == webhook.ReasonDuplicateEvent {
			return c.JSON(fiber.Map{"ok": true, "duplicate": true})
		}
		logSecurityEvent("veriff", result.Reason, body.EventID, c.Get("x-veriff-timestamp"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Webhook verification failed."})
	}

	if body.Verification.Status != "approved" {
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}

	creatorID := strings.TrimSpace(body.CreatorID)
	if creatorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payload is missing creatorId."})
	}

	if _, err := ct.onboarding.Transition(creatorID, onboarding.StatusVeriffPassed, onboarding.ActorWebhook, onboarding.ActorWebhook); err != nil {
		return transitionConflict(c, err)
	}

	if body.Evidence != nil {
		if err := ct.archiveEvidence(c.Context(), creatorID, &body); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to archive verification evidence."})
		}
	}

	if _, err := ct.onboarding.Transition(creatorID, onboarding.StatusVaultArchived, onboarding.ActorSystem, onboarding.ActorSystem); err != nil {
		return transitionConflict(c, err)
	}
	if _, err := ct.onboarding.Transition(creatorID, onboarding.StatusActive, onboarding.ActorSystem, onboarding.ActorSystem); err != nil {
		return transitionConflict(c, err)
	}

	record, err := ct.onboarding.GetRecord(creatorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load onboarding record."})
	}
	return c.JSON(fiber.Map{"received": true, "onboarding": record})
}

func (ct *WebhookController) archiveEvidence(ctx context.Context, creatorID string, body *veriffDecisionBody) error {
	artifact, err := base64.StdEncoding.DecodeString(body.Evidence.Artifact)
	if err != nil {
		return err
	}

	input := vault.WriteInput{
		CreatorID:             creatorID,
		VerificationSessionID: body.Verification.SessionID,
		Artifact:              artifact,
		Metadata: vault.Metadata{
			CaptureTimestamp:     body.Evidence.CaptureTimestamp,
			DocumentCountry:      body.Evidence.DocumentCountry,
			DocumentType:         body.Evidence.DocumentType,
			VerificationDecision: body.Verification.Status,
			ProviderReferenceIDs: body.Evidence.ProviderReferenceIDs,
		},
	}
	if body.Evidence.PIIPointer != "" || body.Evidence.LegalName != "" || body.Evidence.DOBFragment != "" {
		input.Sensitive = &vault.SensitiveFields{
			PIIPointer:  body.Evidence.PIIPointer,
			LegalName:   body.Evidence.LegalName,
			DOBFragment: body.Evidence.DOBFragment,
		}
	}

	_, err = ct.vault.WriteArtifact(ctx, vault.Actor{ID: "veriff-webhook", Role: vault.RoleSystem}, input)
	return err
}

func transitionConflict(c *fiber.Ctx, err error) error {
	var invalid *onboarding.InvalidTransitionError
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": invalid.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to transition onboarding state."})
}

// logSecurityEvent records a rejected webhook without leaking the secret or
// the request body.
func logSecurityEvent(provider, reason, eventID, timestamp string) {
	log.Warnf("[Webhook] rejected provider=%s reason=%s event_id=%s timestamp=%s", provider, reason, eventID, timestamp)
}
