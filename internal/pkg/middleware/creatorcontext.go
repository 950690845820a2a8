package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/vault"
)

const creatorIDLocal = "creator_id"

// RequireCreatorID rejects requests without an x-creator-id header and stores
// the trimmed id in locals for handlers downstream.
func RequireCreatorID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		creatorID := strings.TrimSpace(c.Get("x-creator-id"))
		if creatorID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "x-creator-id header is required",
			})
		}
		c.Locals(creatorIDLocal, creatorID)
		return c.Next()
	}
}

// CreatorID returns the creator id stored by RequireCreatorID.
func CreatorID(c *fiber.Ctx) string {
	id, _ := c.Locals(creatorIDLocal).(string)
	return id
}

// VaultActor builds the acting identity for vault operations from request
// headers. The role string is passed through untrusted; the vault's
// capability predicates decide what it may do.
func VaultActor(c *fiber.Ctx) vault.Actor {
	return vault.Actor{
		ID:   strings.TrimSpace(c.Get("x-actor-id")),
		Role: vault.Role(strings.TrimSpace(c.Get("x-actor-role"))),
	}
}
