package database

import (
	"context"
	"errors"
	"fmt"

	"betpulse/models"

	"github.com/jackc/pgx/v5"
)

const gameColumns = `id, key, name, description, category, payout_multiplier, icon`

func (db *Database) FindGameByKey(ctx context.Context, key string) (*models.GameDefinition, error) {
	query := `SELECT ` + gameColumns + ` FROM game_definitions WHERE key = $1`

	var g models.GameDefinition
	err := db.pool.QueryRow(ctx, query, key).Scan(
		&g.ID, &g.Key, &g.Name, &g.Description, &g.Category, &g.PayoutMultiplier, &g.Icon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game %s: %w", key, err)
	}
	return &g, nil
}

func (db *Database) ListGames(ctx context.Context) ([]models.GameDefinition, error) {
	query := `SELECT ` + gameColumns + ` FROM game_definitions ORDER BY name`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []models.GameDefinition
	for rows.Next() {
		var g models.GameDefinition
		if err := rows.Scan(&g.ID, &g.Key, &g.Name, &g.Description, &g.Category, &g.PayoutMultiplier, &g.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// SeedGames inserts catalog entries that are not present yet. Existing rows
// are left untouched so the catalog stays read-only at bet time.
func (db *Database) SeedGames(ctx context.Context, games []models.GameDefinition) error {
	query := `INSERT INTO game_definitions (key, name, description, category, payout_multiplier, icon)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (key) DO NOTHING`

	for _, g := range games {
		if _, err := db.pool.Exec(ctx, query, g.Key, g.Name, g.Description, g.Category, g.PayoutMultiplier, g.Icon); err != nil {
			return fmt.Errorf("failed to seed game %s: %w", g.Key, err)
		}
	}
	return nil
}
