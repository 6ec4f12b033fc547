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

// EnrollmentRepository handles database operations for enrollments
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll joins a user to a deck. Re-joining is a no-op.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, deckID string, mode models.StudyMode) error {
	query := r.db.Rebind(`
		INSERT INTO enrollments (id, user_id, deck_id, mode, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, deckID, string(mode), time.Now().UTC())
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enroll user: %w", err)
	}
	return nil
}

// IsEnrolled reports whether the user has joined the deck.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, deckID string) (bool, error) {
	var id string
	query := r.db.Rebind("SELECT id FROM enrollments WHERE user_id = ? AND deck_id = ?")
	err := r.db.GetContext(ctx, &id, query, userID, deckID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return true, nil
}

// Mode returns the study mode for a (user, deck) pair, defaulting to anki
// when the enrollment is missing or carries an unknown value.
func (r *EnrollmentRepository) Mode(ctx context.Context, userID, deckID string) (models.StudyMode, error) {
	var mode string
	query := r.db.Rebind("SELECT mode FROM enrollments WHERE user_id = ? AND deck_id = ?")
	err := r.db.GetContext(ctx, &mode, query, userID, deckID)
	if err == sql.ErrNoRows {
		return models.ModeAnki, nil
	}
	if err != nil {
		return models.ModeAnki, fmt.Errorf("failed to get enrollment mode: %w", err)
	}
	return models.ParseStudyMode(mode), nil
}

// ListActiveTargets returns every enrollment on an active deck, flattened
// for the daily push.
func (r *EnrollmentRepository) ListActiveTargets(ctx context.Context) ([]models.PushTarget, error) {
	var targets []models.PushTarget
	query := r.db.Rebind(`
		SELECT u.tg_id, e.user_id, e.deck_id
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN decks d ON d.id = e.deck_id
		WHERE d.is_active = ?
		ORDER BY e.joined_at ASC
	`)
	if err := r.db.SelectContext(ctx, &targets, query, true); err != nil {
		return nil, fmt.Errorf("failed to list active enrollments: %w", err)
	}
	return targets, nil
}

// EnrolledStudent is one student of a deck as its admin sees them.
type EnrolledStudent struct {
	UserID string `db:"user_id"`
	TgID   int64  `db:"tg_id"`
	Mode   string `db:"mode"`
}

// ListStudents returns a deck's students in join order.
func (r *EnrollmentRepository) ListStudents(ctx context.Context, deckID string) ([]EnrolledStudent, error) {
	var students []EnrolledStudent
	query := r.db.Rebind(`
		SELECT e.user_id, u.tg_id, e.mode
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.deck_id = ?
		ORDER BY e.joined_at ASC
	`)
	if err := r.db.SelectContext(ctx, &students, query, deckID); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// Unenroll drops a user's enrollment and wipes their per-deck progress.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, userID, deckID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin unenroll: %w", err)
	}
	defer tx.Rollback()

	cardIDs := "SELECT id FROM cards WHERE deck_id = ?"
	steps := []struct {
		query string
		args  []interface{}
	}{
		{"DELETE FROM study_sessions WHERE user_id = ? AND deck_id = ?", []interface{}{userID, deckID}},
		{"DELETE FROM flags WHERE user_id = ? AND card_id IN (" + cardIDs + ")", []interface{}{userID, deckID}},
		{"DELETE FROM reviews WHERE user_id = ? AND card_id IN (" + cardIDs + ")", []interface{}{userID, deckID}},
		{"DELETE FROM enrollments WHERE user_id = ? AND deck_id = ?", []interface{}{userID, deckID}},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, tx.Rebind(s.query), s.args...); err != nil {
			return fmt.Errorf("failed to wipe enrollment data: %w", err)
		}
	}
	return tx.Commit()
}
