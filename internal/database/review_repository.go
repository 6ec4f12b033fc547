package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/listenbot/pkg/models"
)

// ReviewRepository handles database operations for per-(user, card)
// scheduling state
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Get returns the review row, or nil when the card was never shown.
func (r *ReviewRepository) Get(ctx context.Context, userID, cardID string) (*models.Review, error) {
	var review models.Review
	query := r.db.Rebind("SELECT * FROM reviews WHERE user_id = ? AND card_id = ?")
	err := r.db.GetContext(ctx, &review, query, userID, cardID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// EnsurePlaceholder creates the lazy `new`-state row the first time a card
// is shown. Safe under concurrent callers: the insert loser re-fetches.
func (r *ReviewRepository) EnsurePlaceholder(ctx context.Context, userID, cardID string) (*models.Review, error) {
	existing, err := r.Get(ctx, userID, cardID)
	if err != nil || existing != nil {
		return existing, err
	}
	review := &models.Review{
		UserID:    userID,
		CardID:    cardID,
		State:     models.ReviewStateNew,
		Ease:      2.5,
		UpdatedAt: time.Now().UTC(),
	}
	query := r.db.Rebind(`
		INSERT INTO reviews (user_id, card_id, state, ease, interval_days, step_index, lapses, watch_failed, watch_streak, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, 0, ?, 0, ?)
	`)
	_, err = r.db.ExecContext(ctx, query, review.UserID, review.CardID, string(review.State), review.Ease, false, review.UpdatedAt)
	if isUniqueViolation(err) {
		return r.Get(ctx, userID, cardID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create review placeholder: %w", err)
	}
	return review, nil
}

// Upsert writes the full scheduling state after an answer.
func (r *ReviewRepository) Upsert(ctx context.Context, review *models.Review) error {
	query := r.db.Rebind(`
		INSERT INTO reviews (user_id, card_id, state, due_at, ease, interval_days, step_index, lapses,
			last_answer_raw, last_score, watch_failed, watch_streak, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			state = excluded.state,
			due_at = excluded.due_at,
			ease = excluded.ease,
			interval_days = excluded.interval_days,
			step_index = excluded.step_index,
			lapses = excluded.lapses,
			last_answer_raw = excluded.last_answer_raw,
			last_score = excluded.last_score,
			watch_failed = excluded.watch_failed,
			watch_streak = excluded.watch_streak,
			updated_at = excluded.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		review.UserID, review.CardID, string(review.State), review.DueAt,
		review.Ease, review.IntervalDays, review.StepIndex, review.Lapses,
		review.LastAnswerRaw, review.LastScore, review.WatchFailed, review.WatchStreak,
		review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert review: %w", err)
	}
	return nil
}

// Suspend forces the review to suspended with no due time, creating the row
// if the card was never shown. The only entry into suspended outside the
// watch-mode mastery rule.
func (r *ReviewRepository) Suspend(ctx context.Context, userID, cardID string) error {
	review, err := r.EnsurePlaceholder(ctx, userID, cardID)
	if err != nil {
		return err
	}
	review.State = models.ReviewStateSuspended
	review.DueAt = nil
	review.UpdatedAt = time.Now().UTC()
	return r.Upsert(ctx, review)
}

// DueLearningIDs returns ids of learning-state cards in the deck whose due
// time has passed, earliest first.
func (r *ReviewRepository) DueLearningIDs(ctx context.Context, userID, deckID string, now time.Time, limit int) ([]string, error) {
	return r.dueIDs(ctx, userID, deckID, models.ReviewStateLearning, now, limit)
}

// DueReviewIDs returns ids of review-state cards in the deck whose due time
// has passed, earliest first.
func (r *ReviewRepository) DueReviewIDs(ctx context.Context, userID, deckID string, now time.Time, limit int) ([]string, error) {
	return r.dueIDs(ctx, userID, deckID, models.ReviewStateReview, now, limit)
}

func (r *ReviewRepository) dueIDs(ctx context.Context, userID, deckID string, state models.ReviewState, now time.Time, limit int) ([]string, error) {
	query := r.db.Rebind(`
		SELECT rv.card_id
		FROM reviews rv
		JOIN cards c ON c.id = rv.card_id
		WHERE rv.user_id = ? AND c.deck_id = ? AND c.is_valid = ?
		AND rv.state = ? AND rv.due_at IS NOT NULL AND rv.due_at <= ?
		ORDER BY rv.due_at ASC
		LIMIT ?
	`)
	var ids []string
	err := r.db.SelectContext(ctx, &ids, query, userID, deckID, true, string(state), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due %s cards: %w", state, err)
	}
	return ids, nil
}
