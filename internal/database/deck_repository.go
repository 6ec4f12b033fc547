package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/listenbot/pkg/models"
)

// DeckRepository handles database operations for decks
type DeckRepository struct {
	db *sqlx.DB
}

// NewDeckRepository creates a new repository instance
func NewDeckRepository(db *sqlx.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

func newToken() string {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Create inserts a new deck with a fresh join token.
func (r *DeckRepository) Create(ctx context.Context, adminTgID int64, title string, newPerDay int) (*models.Deck, error) {
	deck := &models.Deck{
		ID:        uuid.NewString(),
		AdminTgID: adminTgID,
		Title:     title,
		Token:     newToken(),
		NewPerDay: newPerDay,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	query := r.db.Rebind(`
		INSERT INTO decks (id, admin_tg_id, title, token, new_per_day, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		deck.ID, deck.AdminTgID, deck.Title, deck.Token, deck.NewPerDay, deck.IsActive, deck.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}
	return deck, nil
}

// GetByID returns a deck, or nil when it does not exist.
func (r *DeckRepository) GetByID(ctx context.Context, deckID string) (*models.Deck, error) {
	var deck models.Deck
	query := r.db.Rebind("SELECT * FROM decks WHERE id = ?")
	err := r.db.GetContext(ctx, &deck, query, deckID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return &deck, nil
}

// GetByToken resolves a join deep-link token, or nil when unknown.
func (r *DeckRepository) GetByToken(ctx context.Context, token string) (*models.Deck, error) {
	var deck models.Deck
	query := r.db.Rebind("SELECT * FROM decks WHERE token = ?")
	err := r.db.GetContext(ctx, &deck, query, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by token: %w", err)
	}
	return &deck, nil
}

// ListByAdmin returns the decks owned by an admin, newest first.
func (r *DeckRepository) ListByAdmin(ctx context.Context, adminTgID int64) ([]models.Deck, error) {
	var decks []models.Deck
	query := r.db.Rebind("SELECT * FROM decks WHERE admin_tg_id = ? ORDER BY created_at DESC")
	if err := r.db.SelectContext(ctx, &decks, query, adminTgID); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// SetActive toggles whether the deck accepts study traffic.
func (r *DeckRepository) SetActive(ctx context.Context, deckID string, active bool) error {
	query := r.db.Rebind("UPDATE decks SET is_active = ? WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, active, deckID); err != nil {
		return fmt.Errorf("failed to set deck active: %w", err)
	}
	return nil
}

// UpdateNewPerDay changes the deck's daily new-card quota.
func (r *DeckRepository) UpdateNewPerDay(ctx context.Context, deckID string, n int) error {
	query := r.db.Rebind("UPDATE decks SET new_per_day = ? WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, n, deckID); err != nil {
		return fmt.Errorf("failed to update new_per_day: %w", err)
	}
	return nil
}

// DeleteFull removes a deck and everything hanging off it: cards, reviews,
// sessions, enrollments, flags and translation links.
func (r *DeckRepository) DeleteFull(ctx context.Context, deckID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin deck delete: %w", err)
	}
	defer tx.Rollback()

	cardIDs := "SELECT id FROM cards WHERE deck_id = ?"
	statements := []string{
		"DELETE FROM reviews WHERE card_id IN (" + cardIDs + ")",
		"DELETE FROM flags WHERE card_id IN (" + cardIDs + ")",
		"DELETE FROM card_translations WHERE card_id IN (" + cardIDs + ")",
		"DELETE FROM study_sessions WHERE deck_id = ?",
		"DELETE FROM enrollments WHERE deck_id = ?",
		"DELETE FROM cards WHERE deck_id = ?",
		"DELETE FROM decks WHERE id = ?",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), deckID); err != nil {
			return fmt.Errorf("failed to delete deck data: %w", err)
		}
	}
	return tx.Commit()
}
