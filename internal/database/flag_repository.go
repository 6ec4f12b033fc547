package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FlagRepository handles database operations for bad-card reports
type FlagRepository struct {
	db *sqlx.DB
}

// NewFlagRepository creates a new repository instance
func NewFlagRepository(db *sqlx.DB) *FlagRepository {
	return &FlagRepository{db: db}
}

// Add records a report.
func (r *FlagRepository) Add(ctx context.Context, userID, cardID, reason string) error {
	query := r.db.Rebind("INSERT INTO flags (id, user_id, card_id, reason, created_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, cardID, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add flag: %w", err)
	}
	return nil
}

// FlaggedCard is one row of the per-deck report export.
type FlaggedCard struct {
	NoteGUID   string `db:"note_guid"`
	AnswerText string `db:"answer_text"`
	Count      int    `db:"cnt"`
}

// ExportByDeck returns the deck's most-flagged cards.
func (r *FlagRepository) ExportByDeck(ctx context.Context, deckID string) ([]FlaggedCard, error) {
	var rows []FlaggedCard
	query := r.db.Rebind(`
		SELECT c.note_guid, c.answer_text, COUNT(f.id) AS cnt
		FROM flags f
		JOIN cards c ON c.id = f.card_id
		WHERE c.deck_id = ?
		GROUP BY c.note_guid, c.answer_text
		ORDER BY cnt DESC
		LIMIT 200
	`)
	if err := r.db.SelectContext(ctx, &rows, query, deckID); err != nil {
		return nil, fmt.Errorf("failed to export flags: %w", err)
	}
	return rows, nil
}
