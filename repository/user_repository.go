package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"toolx/entity"

	"github.com/jmoiron/sqlx"
)

// UserRepository interface defines user data operations
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, email string) (*entity.User, error)
	UpdateLastLogin(ctx context.Context, email string) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

// GetByEmail retrieves a user by email. It returns nil, nil when no user exists.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT id, email, registered_at, last_login_at
		FROM users
		WHERE email = $1
	`

	var user entity.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// Create inserts a user; last_login_at starts equal to registered_at
func (r *userRepository) Create(ctx context.Context, email string) (*entity.User, error) {
	query := `
		INSERT INTO users (email, registered_at, last_login_at)
		VALUES ($1, $2, $2)
		RETURNING id, email, registered_at, last_login_at
	`

	var user entity.User
	if err := r.db.GetContext(ctx, &user, query, email, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, email string) error {
	query := `
		UPDATE users
		SET last_login_at = CURRENT_TIMESTAMP
		WHERE email = $1
	`

	result, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
