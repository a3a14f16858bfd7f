package controllers

import (
	"time"

	"betpulse/models"
	"betpulse/services"

	"github.com/gofiber/fiber/v2"
)

var football *services.FootballService

func InitFootballService(svc *services.FootballService) {
	football = svc
}

type CreateMatchRequest struct {
	League   string                 `json:"league"`
	HomeTeam string                 `json:"home_team"`
	AwayTeam string                 `json:"away_team"`
	Kickoff  time.Time              `json:"kickoff"`
	Market   map[string]interface{} `json:"market"`
}

type MatchStatusRequest struct {
	Status string `json:"status"`
}

type MatchResultRequest struct {
	Result map[string]interface{} `json:"result"`
}

// ListMatches - GET /api/v1/football/matches?status=scheduled
func ListMatches(c *fiber.Ctx) error {
	matches, err := football.ListMatches(c.Context(), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, matches))
}

// GetMatch - GET /api/v1/football/matches/:id
func GetMatch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "invalid match id"))
	}
	match, err := football.GetMatch(c.Context(), int64(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, match))
}

// CreateMatch - POST /api/v1/admin/football/matches
func CreateMatch(c *fiber.Ctx) error {
	var req CreateMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	match, err := football.CreateMatch(c.Context(), req.League, req.HomeTeam, req.AwayTeam, req.Kickoff, req.Market)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(models.NewSuccessWithData(201, 0, match))
}

// SetMatchStatus - PUT /api/v1/admin/football/matches/:id/status
func SetMatchStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "invalid match id"))
	}
	var req MatchStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	match, err := football.SetMatchStatus(c.Context(), int64(id), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, match))
}

// RecordMatchResult - POST /api/v1/admin/football/matches/:id/result
func RecordMatchResult(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "invalid match id"))
	}
	var req MatchResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	match, err := football.RecordResult(c.Context(), int64(id), req.Result)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, match))
}
