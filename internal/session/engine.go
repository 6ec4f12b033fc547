// Package session orchestrates daily study queues: building them, claiming
// the single card a user sees next, and advancing the cursor after answers.
// All methods are safe under concurrent callers for the same (user, deck):
// the current-card claim is an atomic conditional write at the store, so
// even callers that bypass the per-pair lock cannot double-present a card.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/example/listenbot/pkg/models"
)

const (
	// dueReviewCap bounds how many overdue review-state cards enter one
	// day's queue.
	dueReviewCap = 50
	// DefaultExtraNew is how many additional new cards a "study more"
	// request pulls in beyond the deck's daily quota.
	DefaultExtraNew = 30
)

// SessionStore persists per-day study sessions.
type SessionStore interface {
	GetToday(ctx context.Context, userID, deckID, day string) (*models.StudySession, error)
	CreateToday(ctx context.Context, userID, deckID, day string, queue []string) (*models.StudySession, error)
	UpdateProgress(ctx context.Context, sessionID string, pos int, currentCardID *string) error
	UpdateQueue(ctx context.Context, sessionID string, queue []string, currentCardID *string) error
	ClaimCurrentIfNone(ctx context.Context, sessionID, cardID string) (bool, error)
}

// ReviewStore exposes the scheduling-state queries the engine needs.
type ReviewStore interface {
	DueLearningIDs(ctx context.Context, userID, deckID string, now time.Time, limit int) ([]string, error)
	DueReviewIDs(ctx context.Context, userID, deckID string, now time.Time, limit int) ([]string, error)
	EnsurePlaceholder(ctx context.Context, userID, cardID string) (*models.Review, error)
}

// CardSource supplies never-seen card ids in import order.
type CardSource interface {
	NewCardIDs(ctx context.Context, deckID, userID string, limit int) ([]string, error)
}

// DeckSource resolves deck configuration.
type DeckSource interface {
	GetByID(ctx context.Context, deckID string) (*models.Deck, error)
}

// EnrollmentSource resolves the study mode for a (user, deck) pair.
type EnrollmentSource interface {
	Mode(ctx context.Context, userID, deckID string) (models.StudyMode, error)
}

// Engine is the study-session orchestrator.
type Engine struct {
	sessions    SessionStore
	reviews     ReviewStore
	cards       CardSource
	decks       DeckSource
	enrollments EnrollmentSource
}

// NewEngine wires an engine over its stores.
func NewEngine(sessions SessionStore, reviews ReviewStore, cards CardSource, decks DeckSource, enrollments EnrollmentSource) *Engine {
	return &Engine{
		sessions:    sessions,
		reviews:     reviews,
		cards:       cards,
		decks:       decks,
		enrollments: enrollments,
	}
}

// buildTodayQueue computes the day's frozen card order: overdue review-state
// cards first (oldest due, capped), then unseen cards in import order. The
// new-card batch honors the deck's daily quota except in watch mode, which
// is uncapped.
func (e *Engine) buildTodayQueue(ctx context.Context, userID, deckID string, now time.Time) ([]string, error) {
	deck, err := e.decks.GetByID(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return []string{}, nil
	}

	mode, err := e.enrollments.Mode(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	due, err := e.reviews.DueReviewIDs(ctx, userID, deckID, now, dueReviewCap)
	if err != nil {
		return nil, err
	}

	limit := deck.NewPerDay
	if mode == models.ModeWatch {
		limit = 0 // unbounded
	}
	fresh, err := e.cards.NewCardIDs(ctx, deckID, userID, limit)
	if err != nil {
		return nil, err
	}

	return dedup(due, fresh), nil
}

// StartOrResumeToday returns the existing session for the day, or builds the
// queue and creates one. The second return value reports whether a session
// was created. Racing creators both get the same row back.
func (e *Engine) StartOrResumeToday(ctx context.Context, userID, deckID, day string, now time.Time) (*models.StudySession, bool, error) {
	existing, err := e.sessions.GetToday(ctx, userID, deckID, day)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	queue, err := e.buildTodayQueue(ctx, userID, deckID, now)
	if err != nil {
		return nil, false, err
	}
	created, err := e.sessions.CreateToday(ctx, userID, deckID, day, queue)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// EnsureCurrentCard returns the card the user should be looking at,
// claiming one if none is outstanding. Learning-state cards whose step
// timer has expired take priority over the main queue and do not consume
// queue position. Returns "" when the session is exhausted.
func (e *Engine) EnsureCurrentCard(ctx context.Context, userID, deckID, day string, now time.Time) (string, error) {
	sess, _, err := e.StartOrResumeToday(ctx, userID, deckID, day, now)
	if err != nil {
		return "", err
	}

	if cur := sess.Current(); cur != "" {
		return cur, nil
	}

	learning, err := e.reviews.DueLearningIDs(ctx, userID, deckID, now, 1)
	if err != nil {
		return "", err
	}
	if len(learning) > 0 {
		return e.claim(ctx, sess, userID, deckID, day, learning[0])
	}

	if sess.Pos < len(sess.Queue) {
		return e.claim(ctx, sess, userID, deckID, day, sess.Queue[sess.Pos])
	}
	return "", nil
}

// claim performs the atomic set-if-empty write. On losing the race it
// re-reads the session and returns whatever the winner installed.
func (e *Engine) claim(ctx context.Context, sess *models.StudySession, userID, deckID, day, cardID string) (string, error) {
	claimed, err := e.sessions.ClaimCurrentIfNone(ctx, sess.ID, cardID)
	if err != nil {
		return "", err
	}
	if !claimed {
		fresh, err := e.sessions.GetToday(ctx, userID, deckID, day)
		if err != nil {
			return "", err
		}
		return fresh.Current(), nil
	}
	// first exposure creates the lazy review row
	if _, err := e.reviews.EnsurePlaceholder(ctx, userID, cardID); err != nil {
		return "", err
	}
	return cardID, nil
}

// RecordAnsweredCard clears the outstanding card and advances the cursor,
// but only when the answered card is the one the cursor points at: an
// out-of-band learning repeat never consumes main-queue position. Returns
// the new cursor and whether the card came from the main queue.
func (e *Engine) RecordAnsweredCard(ctx context.Context, sess *models.StudySession, cardID string) (int, bool, error) {
	if sess == nil {
		return 0, false, fmt.Errorf("record answer: nil session")
	}
	pos := sess.Pos
	wasMainQueue := false
	if pos < len(sess.Queue) && sess.Queue[pos] == cardID {
		wasMainQueue = true
		pos++
	}
	if err := e.sessions.UpdateProgress(ctx, sess.ID, pos, nil); err != nil {
		return 0, false, err
	}
	sess.Pos = pos
	sess.CurrentCardID = nil
	return pos, wasMainQueue, nil
}

// ExtendTodayWithMore appends another batch of due-review and new cards to
// the day's queue when the learner explicitly asks for more. The cursor is
// untouched and ids already queued are skipped. No-op while a card is
// outstanding.
func (e *Engine) ExtendTodayWithMore(ctx context.Context, userID, deckID, day string, now time.Time, extraNew int) (*models.StudySession, error) {
	sess, err := e.sessions.GetToday(ctx, userID, deckID, day)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		created, _, err := e.StartOrResumeToday(ctx, userID, deckID, day, now)
		return created, err
	}
	if sess.Current() != "" {
		return sess, nil
	}

	deck, err := e.decks.GetByID(ctx, deckID)
	if err != nil || deck == nil {
		return nil, err
	}

	due, err := e.reviews.DueReviewIDs(ctx, userID, deckID, now, dueReviewCap)
	if err != nil {
		return nil, err
	}
	fresh, err := e.cards.NewCardIDs(ctx, deckID, userID, deck.NewPerDay+extraNew)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sess.Queue))
	for _, id := range sess.Queue {
		seen[id] = true
	}
	var add []string
	for _, id := range append(due, fresh...) {
		if !seen[id] {
			seen[id] = true
			add = append(add, id)
		}
	}
	if len(add) == 0 {
		return sess, nil
	}

	newQueue := append(append([]string{}, sess.Queue...), add...)
	if err := e.sessions.UpdateQueue(ctx, sess.ID, newQueue, nil); err != nil {
		return nil, err
	}
	return e.sessions.GetToday(ctx, userID, deckID, day)
}

func dedup(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
