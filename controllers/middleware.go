package controllers

import (
	"errors"
	"strings"

	"betpulse/models"
	"betpulse/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// RequireAuth validates the bearer token and stashes the claims in
// c.Locals("user") for downstream handlers.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(401).JSON(models.NewErrorResponse(401, 1, "missing bearer token"))
		}
		claims, err := utils.VerifyToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(401).JSON(models.NewErrorResponse(401, 1, "invalid or expired token"))
		}
		c.Locals("user", claims)
		return c.Next()
	}
}

// RequireAdmin gates admin-only routes. It must run after RequireAuth.
func RequireAdmin(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(jwt.MapClaims)
	if !ok {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	if role, _ := claims["role"].(string); role != models.RoleAdmin {
		return c.Status(403).JSON(models.NewErrorResponse(403, 2, "admin only"))
	}
	return c.Next()
}

func currentUserID(c *fiber.Ctx) (int64, error) {
	claims, ok := c.Locals("user").(jwt.MapClaims)
	if !ok {
		return 0, errors.New("unauthenticated")
	}
	return utils.ClaimsUserID(claims)
}

// respondError maps the shared error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, err.Error()))
	case errors.Is(err, models.ErrInvalidCredentials):
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "invalid credentials"))
	case errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrNotFound):
		return c.Status(404).JSON(models.NewErrorResponse(404, 4, err.Error()))
	case errors.Is(err, models.ErrEmailTaken):
		return c.Status(409).JSON(models.NewErrorResponse(409, 5, "email already registered"))
	case errors.Is(err, models.ErrInsufficientFunds):
		return c.Status(402).JSON(models.NewErrorResponse(402, 6, "insufficient funds"))
	case errors.Is(err, models.ErrInvalidState):
		return c.Status(409).JSON(models.NewErrorResponse(409, 7, err.Error()))
	case errors.Is(err, models.ErrMissingDestination):
		return c.Status(422).JSON(models.NewErrorResponse(422, 8, err.Error()))
	case errors.Is(err, models.ErrProvider):
		return c.Status(502).JSON(models.NewErrorResponse(502, 9, err.Error()))
	default:
		return c.Status(500).JSON(models.NewErrorResponse(500, 2, err.Error()))
	}
}
