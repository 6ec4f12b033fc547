package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/listenbot/internal/grader"
	"github.com/example/listenbot/internal/session"
	"github.com/example/listenbot/internal/srs"
	"github.com/example/listenbot/pkg/models"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "newdeck":
		b.adminNewDeck(ctx, msg)
	case "decks":
		b.adminListDecks(ctx, msg)
	case "setperday":
		b.adminSetPerDay(ctx, msg)
	case "disabledeck":
		b.adminSetActive(ctx, msg, false)
	case "enabledeck":
		b.adminSetActive(ctx, msg, true)
	case "deletedeck":
		b.adminDeleteDeck(ctx, msg)
	case "badcards":
		b.adminBadCards(ctx, msg)
	case "students":
		b.adminStudents(ctx, msg)
	case "unenroll":
		b.adminUnenroll(ctx, msg)
	case "importdeck":
		b.adminImportDeck(ctx, msg)
	}
}

// parseStartPayload understands the deep-link payloads: "deck_<token>" joins
// in classic mode, "deckw_<token>" in watch mode.
func parseStartPayload(payload string) (token string, mode models.StudyMode, ok bool) {
	switch {
	case strings.HasPrefix(payload, "deckw_"):
		token = strings.TrimPrefix(payload, "deckw_")
		mode = models.ModeWatch
	case strings.HasPrefix(payload, "deck_"):
		token = strings.TrimPrefix(payload, "deck_")
		mode = models.ModeAnki
	default:
		return "", "", false
	}
	return token, mode, token != ""
}

// handleStart joins a student to a deck via its link and sends the first
// card immediately. A bare /start just explains the bot.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	payload := msg.CommandArguments()
	if payload == "" {
		b.reply(msg.Chat.ID, msgStart)
		return
	}
	token, mode, ok := parseStartPayload(payload)
	if !ok {
		b.reply(msg.Chat.ID, msgDeckNotFound)
		return
	}

	deck, err := b.decks.GetByToken(ctx, token)
	if err != nil {
		log.Printf("join: %v", err)
		return
	}
	if deck == nil {
		b.reply(msg.Chat.ID, msgDeckNotFound)
		return
	}
	if !deck.IsActive {
		b.reply(msg.Chat.ID, msgDeckInactive)
		return
	}

	user, err := b.users.GetOrCreateByTgID(ctx, msg.From.ID)
	if err != nil {
		log.Printf("join: %v", err)
		return
	}
	if err := b.enrollments.Enroll(ctx, user.ID, deck.ID, mode); err != nil {
		log.Printf("join: %v", err)
		return
	}

	lock := b.locks.Get(user.ID, deck.ID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	day := b.today()
	sess, _, err := b.engine.StartOrResumeToday(ctx, user.ID, deck.ID, day, now)
	if err != nil {
		log.Printf("join: %v", err)
		return
	}
	cardID, err := b.engine.EnsureCurrentCard(ctx, user.ID, deck.ID, day, now)
	if err != nil {
		log.Printf("join: %v", err)
		return
	}
	if len(sess.Queue) == 0 || cardID == "" {
		b.replyWithKeyboard(msg.Chat.ID, msgDoneToday, studyMoreKeyboard(deck.ID))
		return
	}
	card, err := b.cards.GetByID(ctx, cardID)
	if err != nil || card == nil {
		b.replyWithKeyboard(msg.Chat.ID, msgDoneToday, studyMoreKeyboard(deck.ID))
		return
	}
	if err := b.SendCard(ctx, msg.Chat.ID, card); err != nil {
		log.Printf("join: failed to send card: %v", err)
	}
}

// handleAnswer grades free text against the card the user currently owes an
// answer for, applies the review transition, shows the comparison, and moves
// the session forward.
func (b *Bot) handleAnswer(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.users.GetOrCreateByTgID(ctx, msg.From.ID)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}
	day := b.today()

	outstanding, err := b.sessions.FindOutstandingForUser(ctx, user.ID, day)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}
	if outstanding == nil {
		b.reply(msg.Chat.ID, msgNeedToday)
		return
	}
	deckID := outstanding.DeckID

	lock := b.locks.Get(user.ID, deckID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the outstanding card may have been answered
	// or cleared between the lookup and here.
	sess, err := b.sessions.GetToday(ctx, user.ID, deckID, day)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}
	if sess == nil || sess.Current() == "" {
		b.reply(msg.Chat.ID, msgNeedToday)
		return
	}

	cardID := sess.Current()
	card, err := b.cards.GetByID(ctx, cardID)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}
	if card == nil {
		// card vanished under the session; skip it and move on
		if _, _, err := b.engine.RecordAnsweredCard(ctx, sess, cardID); err != nil {
			log.Printf("answer: %v", err)
			return
		}
		b.sendNextOrDone(ctx, msg.Chat.ID, user.ID, deckID, day)
		return
	}

	now := time.Now().UTC()
	review, err := b.reviews.Get(ctx, user.ID, card.ID)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}
	mode, err := b.enrollments.Mode(ctx, user.ID, deckID)
	if err != nil {
		log.Printf("answer: %v", err)
		return
	}

	result := grader.Grade(msg.Text, card.AnswerText, card.AltAnswers, b.cfg.SimilarityOK, b.cfg.SimilarityAlmost)
	updated := srs.ApplyByMode(review, result.Verdict, now,
		b.cfg.LearningStepsMinutes, b.cfg.LearningGraduateDays,
		msg.Text, result.Score, mode, b.cfg.WatchTarget)
	updated.UserID = user.ID
	updated.CardID = card.ID
	if err := b.reviews.Upsert(ctx, updated); err != nil {
		log.Printf("answer: %v", err)
		return
	}

	secondary, err := b.translations.ForCard(ctx, card.ID)
	if err != nil {
		log.Printf("answer: translation lookup: %v", err)
		secondary = ""
	}
	b.replyHTML(msg.Chat.ID, formatCompare(result.BestMatch, msg.Text, result.Score, result.Verdict, secondary))

	// brief pause so the feedback lands before the next card
	time.Sleep(time.Second)

	if _, _, err := b.engine.RecordAnsweredCard(ctx, sess, cardID); err != nil {
		log.Printf("answer: %v", err)
		return
	}
	b.sendNextOrDone(ctx, msg.Chat.ID, user.ID, deckID, day)
}

func (b *Bot) sendNextOrDone(ctx context.Context, chatID int64, userID, deckID, day string) {
	nextID, err := b.engine.EnsureCurrentCard(ctx, userID, deckID, day, time.Now().UTC())
	if err != nil {
		log.Printf("next card: %v", err)
		return
	}
	if nextID == "" {
		b.replyWithKeyboard(chatID, msgDoneToday, studyMoreKeyboard(deckID))
		return
	}
	card, err := b.cards.GetByID(ctx, nextID)
	if err != nil || card == nil {
		b.replyWithKeyboard(chatID, msgDoneToday, studyMoreKeyboard(deckID))
		return
	}
	if err := b.SendCard(ctx, chatID, card); err != nil {
		log.Printf("next card: failed to send: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	kind, id, err := parseCallback(cb.Data)
	if err != nil {
		log.Printf("callback: %v", err)
		b.answerCallback(cb.ID)
		return
	}
	switch kind {
	case cbKindMore:
		b.cbStudyMore(ctx, cb, id)
	case cbKindBad:
		b.cbBadCard(ctx, cb, id)
	default:
		b.answerCallback(cb.ID)
	}
}

// cbStudyMore extends today's queue on request and serves the next card.
func (b *Bot) cbStudyMore(ctx context.Context, cb *tgbotapi.CallbackQuery, deckID string) {
	defer b.answerCallback(cb.ID)
	chatID := cb.Message.Chat.ID

	deck, err := b.decks.GetByID(ctx, deckID)
	if err != nil {
		log.Printf("study more: %v", err)
		return
	}
	if deck == nil || !deck.IsActive {
		b.reply(chatID, msgDeckInactive)
		return
	}
	user, err := b.users.GetOrCreateByTgID(ctx, cb.From.ID)
	if err != nil {
		log.Printf("study more: %v", err)
		return
	}
	enrolled, err := b.enrollments.IsEnrolled(ctx, user.ID, deckID)
	if err != nil {
		log.Printf("study more: %v", err)
		return
	}
	if !enrolled {
		b.reply(chatID, msgNotEnrolled)
		return
	}

	lock := b.locks.Get(user.ID, deckID)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	day := b.today()
	cardID, err := b.engine.EnsureCurrentCard(ctx, user.ID, deckID, day, now)
	if err != nil {
		log.Printf("study more: %v", err)
		return
	}
	if cardID == "" {
		if _, err := b.engine.ExtendTodayWithMore(ctx, user.ID, deckID, day, now, session.DefaultExtraNew); err != nil {
			log.Printf("study more: %v", err)
			return
		}
		cardID, err = b.engine.EnsureCurrentCard(ctx, user.ID, deckID, day, now)
		if err != nil {
			log.Printf("study more: %v", err)
			return
		}
	}
	if cardID == "" {
		b.replyWithKeyboard(chatID, msgDoneToday, studyMoreKeyboard(deckID))
		return
	}
	card, err := b.cards.GetByID(ctx, cardID)
	if err != nil || card == nil {
		b.replyWithKeyboard(chatID, msgDoneToday, studyMoreKeyboard(deckID))
		return
	}
	if err := b.SendCard(ctx, chatID, card); err != nil {
		log.Printf("study more: failed to send card: %v", err)
	}
}

// cbBadCard flags the card as broken, retires it from scheduling, and moves
// the session past it.
func (b *Bot) cbBadCard(ctx context.Context, cb *tgbotapi.CallbackQuery, cardID string) {
	defer b.answerCallback(cb.ID)
	chatID := cb.Message.Chat.ID

	user, err := b.users.GetOrCreateByTgID(ctx, cb.From.ID)
	if err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	day := b.today()
	outstanding, err := b.sessions.FindOutstandingForUser(ctx, user.ID, day)
	if err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	if outstanding == nil {
		b.reply(chatID, msgNeedToday)
		return
	}
	deckID := outstanding.DeckID

	lock := b.locks.Get(user.ID, deckID)
	lock.Lock()
	defer lock.Unlock()

	if err := b.flags.Add(ctx, user.ID, cardID, "bad_card"); err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	if err := b.reviews.Suspend(ctx, user.ID, cardID); err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	b.reply(chatID, msgFlaggedBad)

	sess, err := b.sessions.GetToday(ctx, user.ID, deckID, day)
	if err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	if sess == nil {
		b.replyWithKeyboard(chatID, msgDoneToday, studyMoreKeyboard(deckID))
		return
	}
	if _, _, err := b.engine.RecordAnsweredCard(ctx, sess, cardID); err != nil {
		log.Printf("bad card: %v", err)
		return
	}
	b.sendNextOrDone(ctx, chatID, user.ID, deckID, day)
}

// formatCompare renders the grading feedback: verdict icon and score, the
// accepted answer the user came closest to with missed words underlined, an
// optional secondary-language line, and the user's line with extra words bold.
func formatCompare(correct, user string, score int, verdict grader.Verdict, secondary string) string {
	icon := "❌"
	switch verdict {
	case grader.VerdictOK:
		icon = "✅"
	case grader.VerdictAlmost:
		icon = "🟨"
	}

	corrHTML, userHTML := grader.HighlightDiff(correct, user)
	if corrHTML == "" {
		corrHTML = html.EscapeString(correct)
	}
	if userHTML == "" {
		userHTML = html.EscapeString(user)
	}

	lines := []string{
		fmt.Sprintf("%s %d/100", icon, score),
		"Correct: " + corrHTML,
	}
	if secondary != "" {
		lines = append(lines, "UA: "+html.EscapeString(secondary))
	}
	lines = append(lines, "You: "+userHTML)

	out := strings.Join(lines, "\n")
	const maxLen = 3500
	if len(out) > maxLen {
		out = out[:maxLen-3] + "..."
	}
	return out
}
