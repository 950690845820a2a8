package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
)

// PaymentController exposes deposit initiation and status queries.
type PaymentController struct {
	ledger   *payments.Service
	validate *validator.Validate
}

func NewPaymentController(ledger *payments.Service) *PaymentController {
	return &PaymentController{ledger: ledger, validate: validator.New()}
}

type initiateDepositRequest struct {
	CreatorID      string  `json:"creator_id" validate:"required"`
	Provider       string  `json:"provider" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Currency       string  `json:"currency" validate:"required"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// HandleInitiateDeposit creates (or returns) the deposit for the supplied
// idempotency key. The key comes from the Idempotency-Key header, falling
// back to the body field.
func (ct *PaymentController) HandleInitiateDeposit(c *fiber.Ctx) error {
	var req initiateDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body."})
	}

	req.CreatorID = strings.TrimSpace(req.CreatorID)
	req.Provider = strings.TrimSpace(req.Provider)
	req.Currency = strings.TrimSpace(req.Currency)

	idempotencyKey := strings.TrimSpace(c.Get("Idempotency-Key"))
	if idempotencyKey == "" {
		idempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	}

	if err := ct.validate.Struct(req); err != nil || idempotencyKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "creator_id, provider, amount, currency, and idempotency key (Idempotency-Key header or idempotency_key body) are required.",
		})
	}

	deposit, err := ct.ledger.InitiateDeposit(payments.InitiateDepositInput{
		IdempotencyKey: idempotencyKey,
		CreatorID:      req.CreatorID,
		Provider:       req.Provider,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to initiate deposit."})
	}

	return c.JSON(fiber.Map{
		"payment_intent_id": deposit.PaymentIntentID,
		"provider":          deposit.Provider,
		"status":            deposit.Status,
		"amount":            deposit.Amount,
		"currency":          deposit.Currency,
		"creator_id":        deposit.CreatorID,
	})
}

// HandleDepositStatus reports the latest deposit for a creator.
func (ct *PaymentController) HandleDepositStatus(c *fiber.Ctx) error {
	creatorID := strings.TrimSpace(c.Query("creator_id"))
	if creatorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "creator_id query parameter is required."})
	}

	deposit, err := ct.ledger.GetDepositByCreatorID(creatorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load deposit."})
	}
	if deposit == nil {
		return c.JSON(fiber.Map{"status": "deposit_missing"})
	}

	return c.JSON(fiber.Map{
		"payment_intent_id": deposit.PaymentIntentID,
		"provider":          deposit.Provider,
		"status":            deposit.Status,
		"amount":            deposit.Amount,
		"currency":          deposit.Currency,
		"creator_id":        deposit.CreatorID,
	})
}
