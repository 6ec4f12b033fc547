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

// CardRepository handles database operations for cards
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new repository instance
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Insert stores one imported card. Returns (false, nil) when a card with the
// same (deck, note_guid) already exists; duplicates are skipped, not errors.
func (r *CardRepository) Insert(ctx context.Context, card *models.Card) (bool, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO cards (id, deck_id, note_guid, answer_text, alt_answers, media_kind, tg_file_id, media_sha256, is_valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.DeckID, card.NoteGUID, card.AnswerText, card.AltAnswers,
		card.MediaKind, card.FileID, card.MediaSHA256, card.IsValid, card.CreatedAt)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert card: %w", err)
	}
	return true, nil
}

// GetByID returns a card, or nil when it does not exist.
func (r *CardRepository) GetByID(ctx context.Context, cardID string) (*models.Card, error) {
	var card models.Card
	query := r.db.Rebind("SELECT * FROM cards WHERE id = ?")
	err := r.db.GetContext(ctx, &card, query, cardID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

// NewCardIDs returns ids of valid cards the user has never been shown (no
// review row), in import order. limit <= 0 means unbounded (watch mode).
func (r *CardRepository) NewCardIDs(ctx context.Context, deckID, userID string, limit int) ([]string, error) {
	query := `
		SELECT c.id FROM cards c
		WHERE c.deck_id = ? AND c.is_valid = ?
		AND c.id NOT IN (SELECT card_id FROM reviews WHERE user_id = ?)
		ORDER BY c.created_at ASC, c.id ASC
	`
	args := []interface{}{deckID, true, userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get new cards: %w", err)
	}
	return ids, nil
}

// FindFileIDBySHA looks up an already-uploaded media file by content hash,
// so re-imports of the same media reuse the provider's file id.
func (r *CardRepository) FindFileIDBySHA(ctx context.Context, sha256 string) (string, error) {
	var fileID string
	query := r.db.Rebind("SELECT tg_file_id FROM cards WHERE media_sha256 = ? LIMIT 1")
	err := r.db.GetContext(ctx, &fileID, query, sha256)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up media hash: %w", err)
	}
	return fileID, nil
}

// CountByDeck returns how many cards a deck has.
func (r *CardRepository) CountByDeck(ctx context.Context, deckID string) (int, error) {
	var n int
	query := r.db.Rebind("SELECT COUNT(*) FROM cards WHERE deck_id = ?")
	if err := r.db.GetContext(ctx, &n, query, deckID); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}
