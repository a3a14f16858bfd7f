package database

import (
	"context"
	"errors"
	"fmt"

	"betpulse/models"

	"github.com/jackc/pgx/v5"
)

const matchColumns = `id, league, home_team, away_team, kickoff, status, market, result, created_at`

func scanMatch(row pgx.Row) (*models.FootballMatch, error) {
	var m models.FootballMatch
	err := row.Scan(&m.ID, &m.League, &m.HomeTeam, &m.AwayTeam, &m.Kickoff,
		&m.Status, &m.Market, &m.Result, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return &m, nil
}

func (db *Database) CreateMatch(ctx context.Context, m *models.FootballMatch) error {
	query := `INSERT INTO football_matches (league, home_team, away_team, kickoff, status, market)
	          VALUES ($1, $2, $3, $4, 'scheduled', $5)
	          RETURNING id, status, created_at`

	err := db.pool.QueryRow(ctx, query, m.League, m.HomeTeam, m.AwayTeam, m.Kickoff, m.Market).
		Scan(&m.ID, &m.Status, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s vs %s: %w", m.HomeTeam, m.AwayTeam, err)
	}
	return nil
}

func (db *Database) FindMatchByID(ctx context.Context, id int64) (*models.FootballMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM football_matches WHERE id = $1`
	return scanMatch(db.pool.QueryRow(ctx, query, id))
}

func (db *Database) ListMatches(ctx context.Context, status string) ([]models.FootballMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM football_matches
	          WHERE ($1 = '' OR status = $1)
	          ORDER BY CASE WHEN $1 = '' THEN NULL ELSE kickoff END ASC, kickoff DESC`

	rows, err := db.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []models.FootballMatch
	for rows.Next() {
		var m models.FootballMatch
		if err := rows.Scan(&m.ID, &m.League, &m.HomeTeam, &m.AwayTeam, &m.Kickoff,
			&m.Status, &m.Market, &m.Result, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (db *Database) UpdateMatchStatus(ctx context.Context, id int64, status string) (*models.FootballMatch, error) {
	query := `UPDATE football_matches SET status = $1 WHERE id = $2
	          RETURNING ` + matchColumns
	return scanMatch(db.pool.QueryRow(ctx, query, status, id))
}

func (db *Database) RecordMatchResult(ctx context.Context, id int64, result map[string]interface{}) (*models.FootballMatch, error) {
	query := `UPDATE football_matches SET result = $1, status = 'settled' WHERE id = $2
	          RETURNING ` + matchColumns
	return scanMatch(db.pool.QueryRow(ctx, query, result, id))
}
