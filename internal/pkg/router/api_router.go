package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/StageDoorHQ/StageDoor/app/controllers"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/middleware"
)

// Controllers bundles the request handlers the API router wires up. The
// caller constructs them with whatever backing stores fit the deployment.
type Controllers struct {
	Webhooks   *controllers.WebhookController
	Payments   *controllers.PaymentController
	Rooms      *controllers.RoomController
	Vault      *controllers.VaultController
	Onboarding *controllers.OnboardingController
}

type ApiRouter struct {
	ct Controllers
}

func NewApiRouter(ct Controllers) *ApiRouter {
	return &ApiRouter{ct: ct}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "StageDoor API",
		})
	})

	// Webhook ingress. No rate limiter here: providers retry aggressively
	// and replay protection already dedupes.
	api.Post("/webhooks/payments", h.ct.Webhooks.HandlePaymentsEnvelope)
	api.Post("/webhooks/veriff", h.ct.Webhooks.HandleVeriffEnvelope)
	api.Post("/webhooks/veriff/decision", h.ct.Webhooks.HandleVeriffDecision)
	api.Post("/payments/webhook", h.ct.Webhooks.HandleProviderEvent)

	// Client-facing routes share one limiter.
	limited := api.Group("", limiter.New())

	limited.Post("/payments/deposit/initiate", h.ct.Payments.HandleInitiateDeposit)
	limited.Get("/payments/deposit/status", h.ct.Payments.HandleDepositStatus)

	limited.Post("/create-room", middleware.RequireCreatorID(), h.ct.Rooms.HandleCreateRoom)
	limited.Post("/rooms/:roomName/token", h.ct.Rooms.HandleMeetingToken)

	limited.Get("/vault/artifacts/:creatorId/:sessionId", h.ct.Vault.HandleReadArtifact)
	limited.Delete("/vault/artifacts/:creatorId/:sessionId", h.ct.Vault.HandleDeleteArtifact)

	limited.Get("/onboarding/:creatorId", h.ct.Onboarding.HandleGetRecord)
	limited.Post("/onboarding/:creatorId/transitions", h.ct.Onboarding.HandleTransition)

	limited.Get("/dashboard/summary", middleware.RequireCreatorID(), h.ct.Onboarding.HandleDashboardSummary)
}
