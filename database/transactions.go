package database

import (
	"context"
	"errors"
	"fmt"

	"betpulse/models"
	"betpulse/utils"

	"github.com/jackc/pgx/v5"
)

const txColumns = `id, user_id, type, amount, status, reference, channel, metadata, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference,
		&t.Channel, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

// CreateTransaction inserts a pending transaction and fills in its id and
// timestamps.
func (db *Database) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	query := `INSERT INTO transactions (user_id, type, amount, status, reference, channel, metadata)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id, created_at, updated_at`

	err := db.pool.QueryRow(ctx, query,
		t.UserID, t.Type, t.Amount, t.Status, t.Reference, t.Channel, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", t.Reference, err)
	}
	return nil
}

func (db *Database) FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(db.pool.QueryRow(ctx, query, id))
}

func (db *Database) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(db.pool.QueryRow(ctx, query, reference))
}

// FindTransactionByCheckoutID correlates an STK callback to the transaction
// whose metadata recorded the checkout request id at initiation time.
func (db *Database) FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
	          WHERE metadata #>> '{mpesa,checkoutRequestId}' = $1`
	return scanTransaction(db.pool.QueryRow(ctx, query, checkoutRequestID))
}

// FindTransactionByConversationID correlates a B2C result to a transaction
// via either of its two conversation identifiers.
func (db *Database) FindTransactionByConversationID(ctx context.Context, conversationID string) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
	          WHERE metadata #>> '{mpesa,conversationId}' = $1
	             OR metadata #>> '{mpesa,originatorConversationId}' = $1`
	return scanTransaction(db.pool.QueryRow(ctx, query, conversationID))
}

// CompareAndSetStatus transitions the transaction from expected to next as
// one atomic conditional update. It reports whether this caller won the
// transition; a false result with nil error means another writer got there
// first or the row is missing.
func (db *Database) CompareAndSetStatus(ctx context.Context, id int64, expected, next string) (bool, error) {
	query := `UPDATE transactions
	          SET status = $1, updated_at = now()
	          WHERE id = $2 AND status = $3`

	tag, err := db.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to transition transaction %d to %s: %w", id, next, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MergeMetadata deep-merges the patch into the stored metadata. Maps merge
// recursively; scalars and arrays in the patch replace existing values.
func (db *Database) MergeMetadata(ctx context.Context, id int64, patch models.Metadata) (*models.Transaction, error) {
	tx, err := db.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := utils.DeepMerge(map[string]interface{}(tx.Metadata), map[string]interface{}(patch))

	query := `UPDATE transactions SET metadata = $1, updated_at = now() WHERE id = $2
	          RETURNING ` + txColumns
	return scanTransaction(db.pool.QueryRow(ctx, query, models.Metadata(merged), id))
}

func (db *Database) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return db.listTransactions(ctx, query, userID, limit)
}

func (db *Database) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions ORDER BY created_at DESC LIMIT $1`
	return db.listTransactions(ctx, query, limit)
}

func (db *Database) listTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference,
			&t.Channel, &t.Metadata, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// FinanceSummary totals completed deposits and withdrawals plus the count
// of transactions still pending.
type FinanceSummary struct {
	TotalDeposits    float64 `json:"total_deposits"`
	TotalWithdrawals float64 `json:"total_withdrawals"`
	PendingCount     int64   `json:"pending_count"`
}

func (db *Database) SummarizeFinance(ctx context.Context) (*FinanceSummary, error) {
	query := `SELECT
	            COALESCE(SUM(amount) FILTER (WHERE type = 'deposit' AND status = 'completed'), 0),
	            COALESCE(SUM(amount) FILTER (WHERE type = 'withdrawal' AND status = 'completed'), 0),
	            COUNT(*) FILTER (WHERE status = 'pending')
	          FROM transactions`

	var s FinanceSummary
	if err := db.pool.QueryRow(ctx, query).Scan(&s.TotalDeposits, &s.TotalWithdrawals, &s.PendingCount); err != nil {
		return nil, fmt.Errorf("failed to summarize finance: %w", err)
	}
	return &s, nil
}
