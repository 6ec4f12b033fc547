package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/listenbot/internal/session"
	"github.com/example/listenbot/pkg/models"
)

type fakeEngine struct {
	sess       *models.StudySession
	card       string
	startCalls int
}

func (f *fakeEngine) StartOrResumeToday(_ context.Context, userID, deckID, day string, _ time.Time) (*models.StudySession, bool, error) {
	f.startCalls++
	if f.sess == nil {
		return &models.StudySession{ID: "s", UserID: userID, DeckID: deckID, StudyDate: day}, true, nil
	}
	return f.sess, true, nil
}

func (f *fakeEngine) EnsureCurrentCard(_ context.Context, _, _, _ string, _ time.Time) (string, error) {
	return f.card, nil
}

type fakeSessions struct {
	mu     sync.Mutex
	today  map[string]*models.StudySession // user|deck
	idle   []models.StudySession
	claims map[string]string // session id -> card id
	refuse bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{today: map[string]*models.StudySession{}, claims: map[string]string{}}
}

func (f *fakeSessions) GetToday(_ context.Context, userID, deckID, _ string) (*models.StudySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.today[userID+"|"+deckID], nil
}

func (f *fakeSessions) ListIdleToday(_ context.Context, _ string) ([]models.StudySession, error) {
	return f.idle, nil
}

func (f *fakeSessions) ClaimCurrentIfNone(_ context.Context, sessionID, cardID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false, nil
	}
	if _, taken := f.claims[sessionID]; taken {
		return false, nil
	}
	f.claims[sessionID] = cardID
	return true, nil
}

type fakeReviews struct{ due []string }

func (f *fakeReviews) DueLearningIDs(_ context.Context, _, _ string, _ time.Time, limit int) ([]string, error) {
	if limit > 0 && len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

type fakeCards struct{ cards map[string]*models.Card }

func (f *fakeCards) GetByID(_ context.Context, cardID string) (*models.Card, error) {
	return f.cards[cardID], nil
}

type fakeUsers struct{ users map[string]*models.User }

func (f *fakeUsers) GetByID(_ context.Context, userID string) (*models.User, error) {
	return f.users[userID], nil
}

type fakeEnrollments struct{ targets []models.PushTarget }

func (f *fakeEnrollments) ListActiveTargets(_ context.Context) ([]models.PushTarget, error) {
	return f.targets, nil
}

type sentCard struct {
	chatID int64
	cardID string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCard
	fail map[int64]bool
}

func (f *fakeSender) SendCard(_ context.Context, chatID int64, card *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("blocked")
	}
	f.sent = append(f.sent, sentCard{chatID: chatID, cardID: card.ID})
	return nil
}

func newTestScheduler(engine *fakeEngine, sessions *fakeSessions, reviews *fakeReviews,
	cards *fakeCards, users *fakeUsers, enrollments *fakeEnrollments, sender *fakeSender) *Scheduler {
	return New(engine, sessions, reviews, cards, users, enrollments, sender,
		session.NewLockRegistry(), time.UTC, 7, 45*time.Second)
}

func TestPushTodayCardsDeliversFirstCard(t *testing.T) {
	engine := &fakeEngine{
		sess: &models.StudySession{ID: "s1", UserID: "u1", DeckID: "d1", Queue: models.StringList{"c1"}},
		card: "c1",
	}
	sessions := newFakeSessions()
	cards := &fakeCards{cards: map[string]*models.Card{"c1": {ID: "c1", AnswerText: "hello"}}}
	sender := &fakeSender{}
	s := newTestScheduler(engine, sessions, &fakeReviews{}, cards, &fakeUsers{}, &fakeEnrollments{
		targets: []models.PushTarget{{ChatID: 100, UserID: "u1", DeckID: "d1"}},
	}, sender)

	s.PushTodayCards(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(100), sender.sent[0].chatID)
	assert.Equal(t, "c1", sender.sent[0].cardID)
}

func TestPushTodayCardsSkipsExistingSessions(t *testing.T) {
	engine := &fakeEngine{
		sess: &models.StudySession{ID: "s1", UserID: "u1", DeckID: "d1", Queue: models.StringList{"c1"}},
		card: "c1",
	}
	sessions := newFakeSessions()
	sessions.today["u1|d1"] = &models.StudySession{ID: "s1"}
	sender := &fakeSender{}
	s := newTestScheduler(engine, sessions, &fakeReviews{},
		&fakeCards{cards: map[string]*models.Card{"c1": {ID: "c1"}}}, &fakeUsers{},
		&fakeEnrollments{targets: []models.PushTarget{{ChatID: 100, UserID: "u1", DeckID: "d1"}}}, sender)

	s.PushTodayCards(context.Background())

	assert.Empty(t, sender.sent)
	assert.Equal(t, 0, engine.startCalls)
}

func TestPushTodayCardsIsolatesFailures(t *testing.T) {
	engine := &fakeEngine{
		sess: &models.StudySession{ID: "s1", Queue: models.StringList{"c1"}},
		card: "c1",
	}
	sender := &fakeSender{fail: map[int64]bool{100: true}}
	s := newTestScheduler(engine, newFakeSessions(), &fakeReviews{},
		&fakeCards{cards: map[string]*models.Card{"c1": {ID: "c1"}}}, &fakeUsers{},
		&fakeEnrollments{targets: []models.PushTarget{
			{ChatID: 100, UserID: "u1", DeckID: "d1"},
			{ChatID: 200, UserID: "u2", DeckID: "d1"},
		}}, sender)

	s.PushTodayCards(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(200), sender.sent[0].chatID)
}

func TestPushTodayCardsSkipsEmptyQueues(t *testing.T) {
	engine := &fakeEngine{
		sess: &models.StudySession{ID: "s1", Queue: models.StringList{}},
		card: "",
	}
	sender := &fakeSender{}
	s := newTestScheduler(engine, newFakeSessions(), &fakeReviews{}, &fakeCards{}, &fakeUsers{},
		&fakeEnrollments{targets: []models.PushTarget{{ChatID: 100, UserID: "u1", DeckID: "d1"}}}, sender)

	s.PushTodayCards(context.Background())

	assert.Empty(t, sender.sent)
}

func TestPollDueLearningSendsToIdleFinishedSession(t *testing.T) {
	sessions := newFakeSessions()
	sessions.idle = []models.StudySession{
		{ID: "s1", UserID: "u1", DeckID: "d1", Queue: models.StringList{"c1"}, Pos: 1},
	}
	sender := &fakeSender{}
	s := newTestScheduler(&fakeEngine{}, sessions, &fakeReviews{due: []string{"learn1"}},
		&fakeCards{cards: map[string]*models.Card{"learn1": {ID: "learn1"}}},
		&fakeUsers{users: map[string]*models.User{"u1": {ID: "u1", TgID: 100}}},
		&fakeEnrollments{}, sender)

	s.PollDueLearning(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "learn1", sender.sent[0].cardID)
	assert.Equal(t, int64(100), sender.sent[0].chatID)
	assert.Equal(t, "learn1", sessions.claims["s1"])
}

func TestPollDueLearningSkipsSessionsWithQueuedWork(t *testing.T) {
	sessions := newFakeSessions()
	sessions.idle = []models.StudySession{
		{ID: "s1", UserID: "u1", DeckID: "d1", Queue: models.StringList{"c1", "c2"}, Pos: 0},
	}
	sender := &fakeSender{}
	s := newTestScheduler(&fakeEngine{}, sessions, &fakeReviews{due: []string{"learn1"}},
		&fakeCards{cards: map[string]*models.Card{"learn1": {ID: "learn1"}}},
		&fakeUsers{users: map[string]*models.User{"u1": {ID: "u1", TgID: 100}}},
		&fakeEnrollments{}, sender)

	s.PollDueLearning(context.Background())

	assert.Empty(t, sender.sent)
	assert.Empty(t, sessions.claims)
}

func TestPollDueLearningRespectsLostClaim(t *testing.T) {
	sessions := newFakeSessions()
	sessions.refuse = true
	sessions.idle = []models.StudySession{
		{ID: "s1", UserID: "u1", DeckID: "d1", Pos: 0},
	}
	sender := &fakeSender{}
	s := newTestScheduler(&fakeEngine{}, sessions, &fakeReviews{due: []string{"learn1"}},
		&fakeCards{cards: map[string]*models.Card{"learn1": {ID: "learn1"}}},
		&fakeUsers{users: map[string]*models.User{"u1": {ID: "u1", TgID: 100}}},
		&fakeEnrollments{}, sender)

	s.PollDueLearning(context.Background())

	assert.Empty(t, sender.sent)
}

func TestPollDueLearningNothingDue(t *testing.T) {
	sessions := newFakeSessions()
	sessions.idle = []models.StudySession{
		{ID: "s1", UserID: "u1", DeckID: "d1", Pos: 0},
	}
	sender := &fakeSender{}
	s := newTestScheduler(&fakeEngine{}, sessions, &fakeReviews{}, &fakeCards{}, &fakeUsers{},
		&fakeEnrollments{}, sender)

	s.PollDueLearning(context.Background())

	assert.Empty(t, sender.sent)
	assert.Empty(t, sessions.claims)
}
