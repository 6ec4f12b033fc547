package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/listenbot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateByTgID returns the user for a Telegram id, creating the row on
// first contact. Concurrent first contacts race on the unique tg_id; the
// loser re-fetches the winner's row.
func (r *UserRepository) GetOrCreateByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	user, err := r.getByTgID(ctx, tgID)
	if err != nil || user != nil {
		return user, err
	}

	user = &models.User{
		ID:        uuid.NewString(),
		TgID:      tgID,
		CreatedAt: time.Now().UTC(),
	}
	query := r.db.Rebind("INSERT INTO users (id, tg_id, created_at) VALUES (?, ?, ?)")
	_, err = r.db.ExecContext(ctx, query, user.ID, user.TgID, user.CreatedAt)
	if isUniqueViolation(err) {
		return r.getByTgID(ctx, tgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID returns a user, or nil when it does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT * FROM users WHERE id = ?")
	err := r.db.GetContext(ctx, &user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByTgID returns the user for a Telegram id, or nil when unknown.
func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	return r.getByTgID(ctx, tgID)
}

func (r *UserRepository) getByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT * FROM users WHERE tg_id = ?")
	err := r.db.GetContext(ctx, &user, query, tgID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by tg id: %w", err)
	}
	return &user, nil
}
