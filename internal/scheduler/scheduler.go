// Package scheduler runs the two background delivery loops: the once-daily
// bulk push at a fixed local hour and the short-interval poll that surfaces
// learning-state cards as their step timers expire. Both loops survive any
// per-recipient failure and any panic; they log and keep ticking.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/time/rate"

	"github.com/example/listenbot/internal/session"
	"github.com/example/listenbot/pkg/models"
)

// StudyEngine is the slice of the session engine the schedulers drive.
type StudyEngine interface {
	StartOrResumeToday(ctx context.Context, userID, deckID, day string, now time.Time) (*models.StudySession, bool, error)
	EnsureCurrentCard(ctx context.Context, userID, deckID, day string, now time.Time) (string, error)
}

// SessionStore is the session access the poll loop needs.
type SessionStore interface {
	GetToday(ctx context.Context, userID, deckID, day string) (*models.StudySession, error)
	ListIdleToday(ctx context.Context, day string) ([]models.StudySession, error)
	ClaimCurrentIfNone(ctx context.Context, sessionID, cardID string) (bool, error)
}

// ReviewStore answers which learning cards are due.
type ReviewStore interface {
	DueLearningIDs(ctx context.Context, userID, deckID string, now time.Time, limit int) ([]string, error)
}

// CardStore resolves card ids for delivery.
type CardStore interface {
	GetByID(ctx context.Context, cardID string) (*models.Card, error)
}

// UserStore resolves internal user ids to chat ids.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// EnrollmentStore lists who gets the daily push.
type EnrollmentStore interface {
	ListActiveTargets(ctx context.Context) ([]models.PushTarget, error)
}

// Sender delivers one card to one chat, best effort.
type Sender interface {
	SendCard(ctx context.Context, chatID int64, card *models.Card) error
}

// Scheduler owns both background loops.
type Scheduler struct {
	engine      StudyEngine
	sessions    SessionStore
	reviews     ReviewStore
	cards       CardStore
	users       UserStore
	enrollments EnrollmentStore
	sender      Sender
	locks       *session.LockRegistry

	loc          *time.Location
	pushHour     int
	pollInterval time.Duration
	limiter      *rate.Limiter

	cron *gocron.Scheduler
}

// New creates a scheduler. pushHour is the local hour (0-23) of the daily
// push in loc; pollInterval is the due-learning poll period.
func New(
	engine StudyEngine,
	sessions SessionStore,
	reviews ReviewStore,
	cards CardStore,
	users UserStore,
	enrollments EnrollmentStore,
	sender Sender,
	locks *session.LockRegistry,
	loc *time.Location,
	pushHour int,
	pollInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		engine:       engine,
		sessions:     sessions,
		reviews:      reviews,
		cards:        cards,
		users:        users,
		enrollments:  enrollments,
		sender:       sender,
		locks:        locks,
		loc:          loc,
		pushHour:     pushHour,
		pollInterval: pollInterval,
		// ~20 outbound messages per second, below the messaging
		// provider's broadcast limit.
		limiter:      rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}
}

// Run starts both loops and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron = gocron.NewScheduler(s.loc)
	_, err := s.cron.Every(1).Day().At(fmt.Sprintf("%02d:00", s.pushHour)).Do(func() {
		s.safeRun("daily push", func() { s.PushTodayCards(ctx) })
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily push: %w", err)
	}
	s.cron.StartAsync()
	defer s.cron.Stop()

	// Catch up on startup: if the process comes up after the push hour,
	// run the push once now. "Session already exists" is the only guard
	// against re-delivery, so this is at-least-once by design.
	if time.Now().In(s.loc).Hour() >= s.pushHour {
		s.safeRun("daily push catch-up", func() { s.PushTodayCards(ctx) })
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.safeRun("due-learning poll", func() { s.PollDueLearning(ctx) })
		case <-ctx.Done():
			log.Println("Stopping schedulers...")
			return ctx.Err()
		}
	}
}

// PushTodayCards creates today's session for every active enrollment that
// does not have one yet and delivers the first card. Each enrollment is
// isolated: a blocked user or a vanished deck never aborts the batch.
func (s *Scheduler) PushTodayCards(ctx context.Context) {
	now := time.Now().UTC()
	day := time.Now().In(s.loc).Format(models.DateLayout)

	targets, err := s.enrollments.ListActiveTargets(ctx)
	if err != nil {
		log.Printf("daily push: failed to list enrollments: %v", err)
		return
	}

	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		if err := s.pushOne(ctx, t, day, now); err != nil {
			log.Printf("daily push: user %s deck %s: %v", t.UserID, t.DeckID, err)
		}
	}
}

func (s *Scheduler) pushOne(ctx context.Context, t models.PushTarget, day string, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Only first-time creation delivers; an existing session means the
	// user (or an earlier run) already has today underway.
	existing, err := s.sessions.GetToday(ctx, t.UserID, t.DeckID, day)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	lock := s.locks.Get(t.UserID, t.DeckID)
	lock.Lock()
	sess, _, err := s.engine.StartOrResumeToday(ctx, t.UserID, t.DeckID, day, now)
	if err != nil {
		lock.Unlock()
		return err
	}
	if sess == nil || len(sess.Queue) == 0 {
		lock.Unlock()
		return nil
	}
	cardID, err := s.engine.EnsureCurrentCard(ctx, t.UserID, t.DeckID, day, now)
	lock.Unlock()
	if err != nil || cardID == "" {
		return err
	}

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil || card == nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.sender.SendCard(ctx, t.ChatID, card)
}

// PollDueLearning walks today's idle sessions (no card outstanding, main
// queue finished) and, where a learning card's timer has expired, claims it
// through the same conditional write as live handlers and delivers it.
// Sessions with queued work or an outstanding card are left alone.
func (s *Scheduler) PollDueLearning(ctx context.Context) {
	now := time.Now().UTC()
	day := time.Now().In(s.loc).Format(models.DateLayout)

	idle, err := s.sessions.ListIdleToday(ctx, day)
	if err != nil {
		log.Printf("due-learning poll: failed to list sessions: %v", err)
		return
	}

	for i := range idle {
		if ctx.Err() != nil {
			return
		}
		if err := s.pollOne(ctx, &idle[i], now); err != nil {
			log.Printf("due-learning poll: session %s: %v", idle[i].ID, err)
		}
	}
}

func (s *Scheduler) pollOne(ctx context.Context, sess *models.StudySession, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Don't interrupt a user who still has main-queue work; the next
	// interaction will surface the learning card anyway.
	if sess.Pos < len(sess.Queue) {
		return nil
	}

	lock := s.locks.Get(sess.UserID, sess.DeckID)
	lock.Lock()
	due, err := s.reviews.DueLearningIDs(ctx, sess.UserID, sess.DeckID, now, 1)
	if err != nil || len(due) == 0 {
		lock.Unlock()
		return err
	}
	cardID := due[0]
	claimed, err := s.sessions.ClaimCurrentIfNone(ctx, sess.ID, cardID)
	lock.Unlock()
	if err != nil {
		return err
	}
	if !claimed {
		// a live handler won the card in the meantime
		return nil
	}

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil || card == nil {
		return err
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil || user == nil {
		return err
	}
	return s.sender.SendCard(ctx, user.TgID, card)
}

func (s *Scheduler) safeRun(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: recovered from panic: %v", name, r)
		}
	}()
	fn()
}
