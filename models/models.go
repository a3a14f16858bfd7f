package models

import "time"

// Roles assigned to a user account.
const (
	RoleAdmin  = "admin"
	RolePlayer = "player"
)

// Transaction types.
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
)

// Transaction statuses. Pending is the only non-terminal state; once a
// transaction reaches Completed or Rejected it is never re-processed for
// balance effect.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// Metadata is the free-form metadata blob stored alongside a transaction.
// It holds provider correlation ids and the status trail and round-trips
// through a JSONB column.
type Metadata map[string]interface{}

// Mpesa returns the nested "mpesa" object, or an empty map if absent.
func (m Metadata) Mpesa() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	if nested, ok := m["mpesa"].(map[string]interface{}); ok {
		return nested
	}
	return map[string]interface{}{}
}

type User struct {
	ID                int64      `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	Role              string     `json:"role" db:"role"`
	Phone             string     `json:"phone" db:"phone"`
	MpesaNumber       string     `json:"mpesa_number" db:"mpesa_number"`
	Balance           float64    `json:"balance" db:"balance"`
	ResetToken        *string    `json:"-" db:"reset_token"`
	ResetTokenExpires *time.Time `json:"-" db:"reset_token_expires"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// GameDefinition is a static catalog entry, read-only at bet time.
type GameDefinition struct {
	ID               int64   `json:"id" db:"id"`
	Key              string  `json:"key" db:"key"`
	Name             string  `json:"name" db:"name"`
	Description      string  `json:"description" db:"description"`
	Category         string  `json:"category" db:"category"`
	PayoutMultiplier float64 `json:"payout_multiplier" db:"payout_multiplier"`
	Icon             string  `json:"icon" db:"icon"`
}

// Bet is immutable once created. The stored fairness tuple lets anyone
// recompute the outcome from the revealed server seed.
type Bet struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	GameKey        string    `json:"game_key" db:"game_key"`
	Selection      int       `json:"selection" db:"selection"`
	Wager          float64   `json:"wager" db:"wager"`
	Outcome        int       `json:"outcome" db:"outcome"`
	Payout         float64   `json:"payout" db:"payout"`
	Win            bool      `json:"win" db:"win"`
	ServerSeed     string    `json:"server_seed" db:"server_seed"`
	ServerSeedHash string    `json:"server_seed_hash" db:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed" db:"client_seed"`
	Nonce          int64     `json:"nonce" db:"nonce"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Transaction represents one deposit or withdrawal.
type Transaction struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"type"`
	Amount    float64   `json:"amount" db:"amount"`
	Status    string    `json:"status" db:"status"`
	Reference string    `json:"reference" db:"reference"`
	Channel   string    `json:"channel" db:"channel"`
	Metadata  Metadata  `json:"metadata" db:"metadata"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type FootballMatch struct {
	ID        int64                  `json:"id" db:"id"`
	League    string                 `json:"league" db:"league"`
	HomeTeam  string                 `json:"home_team" db:"home_team"`
	AwayTeam  string                 `json:"away_team" db:"away_team"`
	Kickoff   time.Time              `json:"kickoff" db:"kickoff"`
	Status    string                 `json:"status" db:"status"`
	Market    map[string]interface{} `json:"market" db:"market"`
	Result    map[string]interface{} `json:"result,omitempty" db:"result"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

type ChatMessage struct {
	ID        string    `json:"id" db:"id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"`
	Author    string    `json:"author" db:"author"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
