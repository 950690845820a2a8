package controllers

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/middleware"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/vault"
)

// VaultController is the compliance/admin surface over verification
// artifacts. Role enforcement happens inside the vault service; this layer
// only translates outcomes to HTTP.
type VaultController struct {
	vault *vault.Service
}

func NewVaultController(vaultSvc *vault.Service) *VaultController {
	return &VaultController{vault: vaultSvc}
}

// HandleReadArtifact returns the record, the artifact bytes (base64), and
// decrypted sensitive fields for privileged actors.
func (ct *VaultController) HandleReadArtifact(c *fiber.Ctx) error {
	actor := middleware.VaultActor(c)
	creatorID := c.Params("creatorId")
	sessionID := c.Params("sessionId")

	result, err := ct.vault.ReadArtifact(c.Context(), actor, creatorID, sessionID)
	if err != nil {
		return vaultError(c, err)
	}

	response := fiber.Map{
		"record":   result.Record,
		"artifact": base64.StdEncoding.EncodeToString(result.Artifact),
	}
	if result.Sensitive != nil {
		response["sensitive"] = result.Sensitive
	}
	return c.JSON(response)
}

// HandleDeleteArtifact removes the stored object and its index record.
func (ct *VaultController) HandleDeleteArtifact(c *fiber.Ctx) error {
	actor := middleware.VaultActor(c)
	creatorID := c.Params("creatorId")
	sessionID := c.Params("sessionId")

	if err := ct.vault.DeleteArtifact(c.Context(), actor, creatorID, sessionID); err != nil {
		return vaultError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func vaultError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, vault.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	case errors.Is(err, vault.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "vault operation failed"})
	}
}
