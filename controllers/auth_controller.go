package controllers

import (
	"betpulse/models"
	"betpulse/services"

	"github.com/gofiber/fiber/v2"
)

var users *services.UserService

func InitUserService(svc *services.UserService) {
	users = svc
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Phone       string `json:"phone"`
	MpesaNumber string `json:"mpesa_number"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Register - POST /api/v1/auth/register
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	user, err := users.Register(c.Context(), req.Email, req.Password, req.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(models.NewSuccessWithData(201, 0, user))
}

// Login - POST /api/v1/auth/login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	user, token, err := users.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, models.H{
		"token": token,
		"user":  user,
	}))
}

// Profile - GET /api/v1/users/me
func Profile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	user, err := users.Profile(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, user))
}

// UpdateProfile - PUT /api/v1/users/me
func UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	user, err := users.UpdateProfile(c.Context(), userID, req.Phone, req.MpesaNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, user))
}

// ChangePassword - POST /api/v1/users/me/password
func ChangePassword(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	if err := users.ChangePassword(c.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccess(200, 0, "password updated"))
}

// ForgotPassword - POST /api/v1/auth/forgot-password
// Always acknowledges so the endpoint does not reveal registered emails.
func ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	token, err := users.RequestPasswordReset(c.Context(), req.Email)
	if err != nil {
		return respondError(c, err)
	}
	data := models.H{"message": "reset instructions sent if the account exists"}
	if token != "" {
		// TODO: hand the token to the notification worker instead of echoing it
		data["reset_token"] = token
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, data))
}

// ResetPassword - POST /api/v1/auth/reset-password
func ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	if err := users.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccess(200, 0, "password reset"))
}

// ListUsers - GET /api/v1/admin/users
func ListUsers(c *fiber.Ctx) error {
	list, err := users.ListUsers(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, list))
}
