package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'player',
		phone TEXT NOT NULL DEFAULT '',
		mpesa_number TEXT NOT NULL DEFAULT '',
		balance DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (balance >= 0),
		reset_token TEXT,
		reset_token_expires TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS game_definitions (
		id BIGSERIAL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		payout_multiplier DOUBLE PRECISION NOT NULL CHECK (payout_multiplier > 1),
		icon TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		game_key TEXT NOT NULL,
		selection INT NOT NULL,
		wager DOUBLE PRECISION NOT NULL,
		outcome INT NOT NULL,
		payout DOUBLE PRECISION NOT NULL,
		win BOOLEAN NOT NULL,
		server_seed TEXT NOT NULL,
		server_seed_hash TEXT NOT NULL,
		client_seed TEXT NOT NULL,
		nonce BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_user ON bets (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pending',
		reference TEXT NOT NULL UNIQUE,
		channel TEXT NOT NULL DEFAULT 'MPESA',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_checkout
		ON transactions ((metadata #>> '{mpesa,checkoutRequestId}'))`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_conversation
		ON transactions ((metadata #>> '{mpesa,conversationId}'))`,
	`CREATE TABLE IF NOT EXISTS football_matches (
		id BIGSERIAL PRIMARY KEY,
		league TEXT NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		kickoff TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		market JSONB NOT NULL DEFAULT '{}',
		result JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id BIGINT REFERENCES users(id),
		author TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
