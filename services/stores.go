package services

import (
	"context"
	"time"

	"betpulse/database"
	"betpulse/models"
	"betpulse/services/mpesa"
)

// Store contracts consumed by the services. *database.Database implements
// all of them; tests substitute in-memory fakes.

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByResetToken(ctx context.Context, token string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ConditionalDebit(ctx context.Context, id int64, amount float64) error
	Credit(ctx context.Context, id int64, delta float64) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	UpdateUserProfile(ctx context.Context, id int64, phone, mpesaNumber string) (*models.User, error)
}

type GameStore interface {
	FindGameByKey(ctx context.Context, key string) (*models.GameDefinition, error)
	ListGames(ctx context.Context) ([]models.GameDefinition, error)
}

type BetStore interface {
	CreateBet(ctx context.Context, b *models.Bet) error
	FindBetByID(ctx context.Context, id int64) (*models.Bet, error)
	CountBetsByUser(ctx context.Context, userID int64) (int64, error)
	ListUserBets(ctx context.Context, userID int64, limit int) ([]models.Bet, error)
	GameStatistics(ctx context.Context) ([]database.GameStat, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
	FindTransactionByConversationID(ctx context.Context, conversationID string) (*models.Transaction, error)
	CompareAndSetStatus(ctx context.Context, id int64, expected, next string) (bool, error)
	MergeMetadata(ctx context.Context, id int64, patch models.Metadata) (*models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	SummarizeFinance(ctx context.Context) (*database.FinanceSummary, error)
}

type MatchStore interface {
	CreateMatch(ctx context.Context, m *models.FootballMatch) error
	FindMatchByID(ctx context.Context, id int64) (*models.FootballMatch, error)
	ListMatches(ctx context.Context, status string) ([]models.FootballMatch, error)
	UpdateMatchStatus(ctx context.Context, id int64, status string) (*models.FootballMatch, error)
	RecordMatchResult(ctx context.Context, id int64, result map[string]interface{}) (*models.FootballMatch, error)
}

type ChatStore interface {
	CreateChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, limit int) ([]models.ChatMessage, error)
}

// PaymentProvider is the outbound side of the mobile-money integration.
type PaymentProvider interface {
	InitiateSTKPush(ctx context.Context, payload mpesa.StkPushRequest) (*mpesa.StkPushResponse, error)
	TriggerB2CPayout(ctx context.Context, payload mpesa.B2CRequest) (*mpesa.B2CResponse, error)
	NormalizeMsisdn(phoneNumber string) string
	FormatInternationalMsisdn(phoneNumber string) string
}
