package routes

import (
	"betpulse/controllers"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, jwtSecret string) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", controllers.Register)
	auth.Post("/login", controllers.Login)
	auth.Post("/forgot-password", controllers.ForgotPassword)
	auth.Post("/reset-password", controllers.ResetPassword)

	// provider webhooks, unauthenticated by design
	mpesa := api.Group("/finance/mpesa")
	mpesa.Post("/stk-callback", controllers.StkCallback)
	mpesa.Post("/b2c-result", controllers.B2CResult)
	mpesa.Post("/b2c-timeout", controllers.B2CTimeout)
	mpesa.Post("/c2b-validation", controllers.C2BValidation)
	mpesa.Post("/c2b-confirmation", controllers.C2BConfirmation)

	api.Get("/games", controllers.ListGames)
	api.Get("/football/matches", controllers.ListMatches)
	api.Get("/football/matches/:id", controllers.GetMatch)
	api.Get("/chat/messages", controllers.ChatHistory)

	authed := api.Group("", controllers.RequireAuth(jwtSecret))
	authed.Get("/users/me", controllers.Profile)
	authed.Put("/users/me", controllers.UpdateProfile)
	authed.Post("/users/me/password", controllers.ChangePassword)
	authed.Get("/users/me/dashboard", controllers.Dashboard)
	authed.Post("/games/bet", controllers.PlaceBet)
	authed.Get("/games/bets", controllers.MyBets)
	authed.Get("/games/bets/:id/verify", controllers.VerifyBet)
	authed.Post("/finance/deposit", controllers.Deposit)
	authed.Post("/finance/withdraw", controllers.Withdraw)
	authed.Get("/finance/transactions", controllers.MyTransactions)
	authed.Post("/chat/messages", controllers.PostChatMessage)

	admin := api.Group("/admin", controllers.RequireAuth(jwtSecret), controllers.RequireAdmin)
	admin.Get("/users", controllers.ListUsers)
	admin.Get("/games/stats", controllers.GameStats)
	admin.Get("/finance/transactions", controllers.AllTransactions)
	admin.Get("/finance/summary", controllers.FinanceSummary)
	admin.Post("/finance/transactions/:id/payout", controllers.ApprovePayout)
	admin.Post("/football/matches", controllers.CreateMatch)
	admin.Put("/football/matches/:id/status", controllers.SetMatchStatus)
	admin.Post("/football/matches/:id/result", controllers.RecordMatchResult)
}
