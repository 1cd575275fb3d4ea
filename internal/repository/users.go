// Package repository provides persistence implementations for user accounts
// backed by PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresUserRepository implements the credential store on a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// UserExists checks whether a user with the specified username exists in the database.
func (r *PostgresUserRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a new user with an absent motto and returns it with its
// assigned ID. A username that is already taken yields common.ErrAlreadyExists.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{Username: username, PasswordHash: passwordHash}
	err := r.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password, motto) VALUES ($1, $2, NULL) RETURNING id`,
		username, passwordHash,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetUserByUsername fetches a user by username. Returns common.ErrNotFound
// when no row matches.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var (
		user  models.User
		motto sql.NullString
	)
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, username, password, motto FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &motto)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if motto.Valid {
		user.Motto = &motto.String
	}
	return &user, nil
}

// UpdateMotto replaces the user's encrypted motto. Returns common.ErrNotFound
// when the user does not exist.
func (r *PostgresUserRepository) UpdateMotto(ctx context.Context, username, motto string) error {
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE users SET motto = $1 WHERE username = $2`,
		motto, username,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows == 0 {
		return common.ErrNotFound
	}
	return nil
}
