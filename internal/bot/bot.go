// Package bot is the Telegram transport layer: it maps updates onto the
// session engine, the grader and the review machine, and renders cards and
// feedback back into chat messages.
package bot

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/listenbot/internal/config"
	"github.com/example/listenbot/internal/database"
	"github.com/example/listenbot/internal/importer"
	"github.com/example/listenbot/internal/session"
	"github.com/example/listenbot/internal/translate"
	"github.com/example/listenbot/pkg/models"
)

// Bot is the Telegram front end.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    *config.Settings
	loc    *time.Location
	engine *session.Engine
	locks  *session.LockRegistry

	users        *database.UserRepository
	decks        *database.DeckRepository
	cards        *database.CardRepository
	enrollments  *database.EnrollmentRepository
	reviews      *database.ReviewRepository
	sessions     *database.SessionRepository
	flags        *database.FlagRepository
	translations *translate.Service
	importer     *importer.Importer
}

// New connects to Telegram and wires the bot over its collaborators.
func New(
	cfg *config.Settings,
	loc *time.Location,
	engine *session.Engine,
	locks *session.LockRegistry,
	users *database.UserRepository,
	decks *database.DeckRepository,
	cards *database.CardRepository,
	enrollments *database.EnrollmentRepository,
	reviews *database.ReviewRepository,
	sessions *database.SessionRepository,
	flags *database.FlagRepository,
	translations *translate.Service,
	imp *importer.Importer,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:          api,
		cfg:          cfg,
		loc:          loc,
		engine:       engine,
		locks:        locks,
		users:        users,
		decks:        decks,
		cards:        cards,
		enrollments:  enrollments,
		reviews:      reviews,
		sessions:     sessions,
		flags:        flags,
		translations: translations,
		importer:     imp,
	}, nil
}

// Start runs the long-polling update loop until ctx is cancelled. Each
// update is handled in its own goroutine; the per-(user, deck) locks keep
// session mutations serialized.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping bot...")
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("update handler: recovered from panic: %v", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleAnswer(ctx, update.Message)
	}
}

// today returns the calendar day key in the configured zone.
func (b *Bot) today() string {
	return time.Now().In(b.loc).Format(models.DateLayout)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
}

const (
	msgStart         = "Students: open a deck link to start (the first card is sent immediately).\nEvery morning you will receive today's first card automatically."
	msgDeckNotFound  = "Deck not found (invalid link)."
	msgDeckInactive  = "This deck is inactive."
	msgDoneToday     = "It's all for today."
	msgNeedToday     = "No active card. Open the deck link (or wait for the morning push)."
	msgFlaggedBad    = "Flagged as bad card. Skipping..."
	msgNotEnrolled   = "Not enrolled. Open the deck link again."
	msgAdminsOnly    = "This command is for deck admins."
)
