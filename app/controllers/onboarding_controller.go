package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/middleware"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/onboarding"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/payments"
)

// OnboardingController exposes onboarding progression and the activation-
// gated dashboard surface.
type OnboardingController struct {
	onboarding *onboarding.Service
	ledger     *payments.Service
}

func NewOnboardingController(onboardingSvc *onboarding.Service, ledger *payments.Service) *OnboardingController {
	return &OnboardingController{onboarding: onboardingSvc, ledger: ledger}
}

// HandleGetRecord returns a creator's status and transition trail, creating
// the record at the initial status on first access.
func (ct *OnboardingController) HandleGetRecord(c *fiber.Ctx) error {
	creatorID := c.Params("creatorId")
	record, err := ct.onboarding.GetRecord(creatorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load onboarding record."})
	}
	return c.JSON(record)
}

type transitionRequest struct {
	To     string `json:"to"`
	Actor  string `json:"actor"`
	Source string `json:"source"`
}

// HandleTransition advances a creator one step along the onboarding graph.
func (ct *OnboardingController) HandleTransition(c *fiber.Ctx) error {
	creatorID := c.Params("creatorId")

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON body."})
	}
	if strings.TrimSpace(req.To) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to is required."})
	}

	actor := req.Actor
	if actor == "" {
		actor = onboarding.ActorUser
	}
	source := req.Source
	if source == "" {
		source = actor
	}

	record, err := ct.onboarding.Transition(creatorID, req.To, actor, source)
	if err != nil {
		var invalid *onboarding.InvalidTransitionError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": invalid.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to transition onboarding state."})
	}
	return c.JSON(record)
}

// HandleDashboardSummary is a privileged dashboard action: it hard-fails for
// any creator who has not completed activation.
func (ct *OnboardingController) HandleDashboardSummary(c *fiber.Ctx) error {
	creatorID := middleware.CreatorID(c)

	if err := ct.onboarding.AssertActive(creatorID); err != nil {
		var notActive *onboarding.NotActiveError
		if errors.As(err, &notActive) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": notActive.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check onboarding status."})
	}

	deposit, err := ct.ledger.GetDepositByCreatorID(creatorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load deposit."})
	}

	summary := fiber.Map{"creator_id": creatorID, "status": onboarding.StatusActive}
	if deposit != nil {
		summary["deposit_status"] = deposit.Status
	}
	return c.JSON(summary)
}
