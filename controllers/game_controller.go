package controllers

import (
	"betpulse/models"
	"betpulse/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

var games *services.GameService

func InitGameService(svc *services.GameService) {
	games = svc
}

type PlaceBetRequest struct {
	GameKey    string  `json:"game_key"`
	Selection  int     `json:"selection"`
	Amount     float64 `json:"amount"`
	ClientSeed string  `json:"client_seed"`
}

// ListGames - GET /api/v1/games
func ListGames(c *fiber.Ctx) error {
	list, err := games.ListGames(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, list))
}

// PlaceBet - POST /api/v1/games/bet
func PlaceBet(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	var req PlaceBetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "malformed body"))
	}
	result, err := games.PlaceBet(c.Context(), userID, req.GameKey, req.Selection, req.Amount, req.ClientSeed)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, result))
}

// VerifyBet - GET /api/v1/games/bets/:id/verify
func VerifyBet(c *fiber.Ctx) error {
	betID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(models.NewErrorResponse(400, 3, "invalid bet id"))
	}
	result, err := games.VerifyBet(c.Context(), int64(betID))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, result))
}

// MyBets - GET /api/v1/games/bets
func MyBets(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}
	bets, err := games.ListUserBets(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, bets))
}

// GameStats - GET /api/v1/admin/games/stats
func GameStats(c *fiber.Ctx) error {
	stats, err := games.GameStatistics(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, stats))
}

// Dashboard - GET /api/v1/users/me/dashboard
// Fetches profile, bet history and transaction history concurrently.
func Dashboard(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(401).JSON(models.NewErrorResponse(401, 1, "unauthenticated"))
	}

	var (
		profile      interface{}
		bets         interface{}
		transactions interface{}
	)
	g, ctx := errgroup.WithContext(c.Context())
	g.Go(func() error {
		u, err := users.Profile(ctx, userID)
		profile = u
		return err
	})
	g.Go(func() error {
		b, err := games.ListUserBets(ctx, userID)
		bets = b
		return err
	})
	g.Go(func() error {
		t, err := finance.ListUserTransactions(ctx, userID)
		transactions = t
		return err
	})
	if err := g.Wait(); err != nil {
		return respondError(c, err)
	}

	return c.Status(200).JSON(models.NewSuccessWithData(200, 0, models.H{
		"profile":      profile,
		"bets":         bets,
		"transactions": transactions,
	}))
}
