package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/StageDoorHQ/StageDoor/internal/pkg/env"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/middleware"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/preflight"
	"github.com/StageDoorHQ/StageDoor/internal/pkg/rooms"
)

// PreflightFailedCode tags the structured error returned when a creator is
// denied a room.
const PreflightFailedCode = "CREATOR_PREFLIGHT_FAILED"

// RoomController is the preflight consumer boundary: no externally-hosted
// session resource is created before the gate passes.
type RoomController struct {
	gate      *preflight.Gate
	newClient func() *rooms.Client
}

func NewRoomController(gate *preflight.Gate) *RoomController {
	return &RoomController{
		gate: gate,
		newClient: func() *rooms.Client {
			return rooms.NewClient(env.GetEnv("DAILY_API_KEY", ""))
		},
	}
}

// NewRoomControllerWithClient injects the rooms client factory, for tests.
func NewRoomControllerWithClient(gate *preflight.Gate, newClient func() *rooms.Client) *RoomController {
	return &RoomController{gate: gate, newClient: newClient}
}

// HandleCreateRoom evaluates the preflight gate for the requesting creator
// and only then provisions a room at the video provider. Gate failures are
// surfaced as a structured 403, never silently degraded.
func (ct *RoomController) HandleCreateRoom(c *fiber.Ctx) error {
	creatorID := middleware.CreatorID(c)

	result, err := ct.gate.Evaluate(c.Context(), creatorID)
	if err != nil {
		log.Errorf("[Rooms] preflight evaluation for %s failed: %v", creatorID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Preflight evaluation failed."})
	}
	if !result.OK {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"code":     PreflightFailedCode,
			"message":  "Creator is not cleared to host a session.",
			"failures": result.Failures,
		})
	}

	if env.GetEnv("DAILY_API_KEY", "") == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server is missing DAILY_API_KEY configuration."})
	}

	room, err := ct.newClient().CreateRoom(c.Context())
	if err != nil {
		log.Errorf("[Rooms] room creation for %s failed: %v", creatorID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create room."})
	}

	return c.JSON(fiber.Map{"roomName": room.Name, "url": room.URL, "name": room.Name})
}

// HandleMeetingToken issues a participant token bounded by the room's
// remaining lifetime.
func (ct *RoomController) HandleMeetingToken(c *fiber.Ctx) error {
	roomName := c.Params("roomName")
	if roomName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "roomName is required."})
	}

	if env.GetEnv("DAILY_API_KEY", "") == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server is missing DAILY_API_KEY configuration."})
	}

	client := ct.newClient()
	room, err := client.GetRoom(c.Context(), roomName)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch room."})
	}

	expiration, ok := rooms.TokenExpiration(time.Now().Unix(), room.Expiration)
	if !ok {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "Room has expired."})
	}

	token, err := client.CreateMeetingToken(c.Context(), roomName, expiration)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to issue meeting token."})
	}

	return c.JSON(fiber.Map{"token": token, "exp": expiration})
}
