package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"betpulse/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, role, phone, mpesa_number, balance,
	reset_token, reset_token_expires, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.MpesaNumber,
		&u.Balance, &u.ResetToken, &u.ResetTokenExpires, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user and returns it with its assigned id.
func (db *Database) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	query := `INSERT INTO users (email, password_hash, role, phone, mpesa_number, balance)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING ` + userColumns

	row := db.pool.QueryRow(ctx, query,
		strings.ToLower(u.Email), u.PasswordHash, u.Role, u.Phone, u.MpesaNumber, u.Balance)
	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", u.Email, err)
	}
	return created, nil
}

func (db *Database) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.pool.QueryRow(ctx, query, id))
}

func (db *Database) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(db.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (db *Database) FindUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return scanUser(db.pool.QueryRow(ctx, query, token))
}

func (db *Database) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.MpesaNumber,
			&u.Balance, &u.ResetToken, &u.ResetTokenExpires, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ConditionalDebit decrements balance only when the current balance covers
// the amount, as one atomic conditional update. Zero rows affected means
// either the user is missing or the balance was too low; a follow-up
// existence check tells the two apart.
func (db *Database) ConditionalDebit(ctx context.Context, id int64, amount float64) error {
	query := `UPDATE users
	          SET balance = balance - $1, updated_at = now()
	          WHERE id = $2 AND balance >= $1`

	tag, err := db.pool.Exec(ctx, query, amount, id)
	if err != nil {
		return fmt.Errorf("failed to debit user %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user %d: %w", id, err)
	}
	if !exists {
		return models.ErrUserNotFound
	}
	return models.ErrInsufficientFunds
}

// Credit applies an unconditional atomic increment. Delta may be negative
// for compensating adjustments.
func (db *Database) Credit(ctx context.Context, id int64, delta float64) error {
	query := `UPDATE users
	          SET balance = balance + $1, updated_at = now()
	          WHERE id = $2`

	tag, err := db.pool.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to credit user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (db *Database) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users
	          SET password_hash = $1, reset_token = NULL, reset_token_expires = NULL, updated_at = now()
	          WHERE id = $2`

	tag, err := db.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (db *Database) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	query := `UPDATE users
	          SET reset_token = $1, reset_token_expires = $2, updated_at = now()
	          WHERE id = $3`

	tag, err := db.pool.Exec(ctx, query, token, expires, id)
	if err != nil {
		return fmt.Errorf("failed to set reset token for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (db *Database) ClearResetToken(ctx context.Context, id int64) error {
	query := `UPDATE users
	          SET reset_token = NULL, reset_token_expires = NULL, updated_at = now()
	          WHERE id = $1`

	if _, err := db.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear reset token for user %d: %w", id, err)
	}
	return nil
}

func (db *Database) UpdateUserProfile(ctx context.Context, id int64, phone, mpesaNumber string) (*models.User, error) {
	query := `UPDATE users
	          SET phone = COALESCE(NULLIF($1, ''), phone),
	              mpesa_number = COALESCE(NULLIF($2, ''), mpesa_number),
	              updated_at = now()
	          WHERE id = $3
	          RETURNING ` + userColumns

	return scanUser(db.pool.QueryRow(ctx, query, phone, mpesaNumber, id))
}
