package database

import (
	"context"
	"errors"
	"fmt"

	"betpulse/models"

	"github.com/jackc/pgx/v5"
)

const betColumns = `id, user_id, game_key, selection, wager, outcome, payout, win,
	server_seed, server_seed_hash, client_seed, nonce, created_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	err := row.Scan(&b.ID, &b.UserID, &b.GameKey, &b.Selection, &b.Wager, &b.Outcome,
		&b.Payout, &b.Win, &b.ServerSeed, &b.ServerSeedHash, &b.ClientSeed, &b.Nonce, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet: %w", err)
	}
	return &b, nil
}

// CreateBet persists an immutable bet record and fills in its id and
// creation time.
func (db *Database) CreateBet(ctx context.Context, b *models.Bet) error {
	query := `INSERT INTO bets (user_id, game_key, selection, wager, outcome, payout, win,
	              server_seed, server_seed_hash, client_seed, nonce)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id, created_at`

	err := db.pool.QueryRow(ctx, query,
		b.UserID, b.GameKey, b.Selection, b.Wager, b.Outcome, b.Payout, b.Win,
		b.ServerSeed, b.ServerSeedHash, b.ClientSeed, b.Nonce,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet for user %d: %w", b.UserID, err)
	}
	return nil
}

func (db *Database) FindBetByID(ctx context.Context, id int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`
	return scanBet(db.pool.QueryRow(ctx, query, id))
}

// CountBetsByUser returns the number of bets the user has placed. The next
// bet's nonce is this count plus one.
func (db *Database) CountBetsByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bets WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bets for user %d: %w", userID, err)
	}
	return count, nil
}

func (db *Database) ListUserBets(ctx context.Context, userID int64, limit int) ([]models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := db.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var bets []models.Bet
	for rows.Next() {
		var b models.Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.GameKey, &b.Selection, &b.Wager, &b.Outcome,
			&b.Payout, &b.Win, &b.ServerSeed, &b.ServerSeedHash, &b.ClientSeed, &b.Nonce, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bet row: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// GameStat aggregates wager and payout totals per game.
type GameStat struct {
	GameKey     string  `json:"game_key"`
	TotalBets   int64   `json:"total_bets"`
	TotalWager  float64 `json:"total_wager"`
	TotalPayout float64 `json:"total_payout"`
	HouseEdge   float64 `json:"house_edge"`
}

func (db *Database) GameStatistics(ctx context.Context) ([]GameStat, error) {
	query := `SELECT game_key, COUNT(*), COALESCE(SUM(wager), 0), COALESCE(SUM(payout), 0)
	          FROM bets GROUP BY game_key`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate game statistics: %w", err)
	}
	defer rows.Close()

	var stats []GameStat
	for rows.Next() {
		var s GameStat
		if err := rows.Scan(&s.GameKey, &s.TotalBets, &s.TotalWager, &s.TotalPayout); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		s.HouseEdge = s.TotalWager - s.TotalPayout
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
