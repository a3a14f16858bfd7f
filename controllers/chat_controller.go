package controllers

import (
	"betpulse/models"
	"betpulse/services"

	"github.com/gofiber/fiber/v2"
)

var chat *services.ChatService

func InitChatService(svc *services.ChatService) {
	chat = svc
}

type PostMessageRequest struct {
	Message string `json:"message"`
}

// ChatHistory - GET /api/v1/chat/messages
func ChatHistory(c *fiber.Ctx) error {
	messages, err := chat.History(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, messages))
}

// PostChatMessage - POST /api/v1/chat/messages
// REST fallback for clients without a socket connection; the message still
// fans out to connected gateways through the pub/sub channel.
func PostChatMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	user, err := users.Profile(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	msg, err := chat.PostMessage(c.Context(), &user.ID, user.Email, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(models.NewSuccessWithData(201, 0, msg))
}
