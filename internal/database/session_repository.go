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

// SessionRepository handles database operations for study sessions
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetToday returns the (user, deck, day) session, or nil when absent.
func (r *SessionRepository) GetToday(ctx context.Context, userID, deckID, day string) (*models.StudySession, error) {
	var sess models.StudySession
	query := r.db.Rebind("SELECT * FROM study_sessions WHERE user_id = ? AND deck_id = ? AND study_date = ?")
	err := r.db.GetContext(ctx, &sess, query, userID, deckID, day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study session: %w", err)
	}
	return &sess, nil
}

// CreateToday inserts the day's session with cursor 0 and no current card.
// Two concurrent creators race on the (user, deck, study_date) unique key;
// the loser transparently returns the winner's row.
func (r *SessionRepository) CreateToday(ctx context.Context, userID, deckID, day string, queue []string) (*models.StudySession, error) {
	now := time.Now().UTC()
	sess := &models.StudySession{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeckID:    deckID,
		StudyDate: day,
		Queue:     queue,
		Pos:       0,
		StartedAt: now,
		UpdatedAt: now,
	}
	query := r.db.Rebind(`
		INSERT INTO study_sessions (id, user_id, deck_id, study_date, queue, pos, current_card_id, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, sess.ID, sess.UserID, sess.DeckID, sess.StudyDate, sess.Queue, sess.StartedAt, sess.UpdatedAt)
	if isUniqueViolation(err) {
		existing, gerr := r.GetToday(ctx, userID, deckID, day)
		if gerr != nil {
			return nil, gerr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create study session: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create study session: %w", err)
	}
	return sess, nil
}

// UpdateProgress sets the cursor and current card in one write.
func (r *SessionRepository) UpdateProgress(ctx context.Context, sessionID string, pos int, currentCardID *string) error {
	query := r.db.Rebind("UPDATE study_sessions SET pos = ?, current_card_id = ?, updated_at = ? WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, pos, currentCardID, time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to update session progress: %w", err)
	}
	return nil
}

// UpdateQueue replaces the queue (extend operation) and current card.
func (r *SessionRepository) UpdateQueue(ctx context.Context, sessionID string, queue []string, currentCardID *string) error {
	query := r.db.Rebind("UPDATE study_sessions SET queue = ?, current_card_id = ?, updated_at = ? WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, models.StringList(queue), currentCardID, time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to update session queue: %w", err)
	}
	return nil
}

// ClaimCurrentIfNone atomically sets current_card_id, but only when it is
// empty. This is a single conditional UPDATE, not read-then-write: of any
// number of concurrent claimants exactly one sees true.
func (r *SessionRepository) ClaimCurrentIfNone(ctx context.Context, sessionID, cardID string) (bool, error) {
	query := r.db.Rebind("UPDATE study_sessions SET current_card_id = ?, updated_at = ? WHERE id = ? AND current_card_id IS NULL")
	res, err := r.db.ExecContext(ctx, query, cardID, time.Now().UTC(), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to claim current card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return n > 0, nil
}

// FindOutstandingForUser returns the user's most recently touched session of
// the day that has a card waiting for an answer, or nil.
func (r *SessionRepository) FindOutstandingForUser(ctx context.Context, userID, day string) (*models.StudySession, error) {
	var sess models.StudySession
	query := r.db.Rebind(`
		SELECT * FROM study_sessions
		WHERE user_id = ? AND study_date = ? AND current_card_id IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	err := r.db.GetContext(ctx, &sess, query, userID, day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find outstanding session: %w", err)
	}
	return &sess, nil
}

// ListIdleToday returns the day's sessions with no card outstanding. The
// poller filters these further by cursor position and learning dues.
func (r *SessionRepository) ListIdleToday(ctx context.Context, day string) ([]models.StudySession, error) {
	var sessions []models.StudySession
	query := r.db.Rebind("SELECT * FROM study_sessions WHERE study_date = ? AND current_card_id IS NULL")
	if err := r.db.SelectContext(ctx, &sessions, query, day); err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	return sessions, nil
}
