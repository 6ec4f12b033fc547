package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/listenbot/internal/importer"
	"github.com/example/listenbot/pkg/models"
)

// Admin commands manage decks directly from chat. Only user ids listed in
// ADMIN_IDS may use them, and a deck can only be managed by the admin who
// created it.

func (b *Bot) isAdmin(tgID int64) bool {
	return b.cfg.AdminIDs[tgID]
}

// ownedDeck resolves an admin's deck argument (UUID or packed id) and checks
// ownership. Replies on failure and returns nil.
func (b *Bot) ownedDeck(ctx context.Context, msg *tgbotapi.Message, arg string) *stringDeck {
	deckID, err := parseID(arg)
	if err != nil {
		b.reply(msg.Chat.ID, msgDeckNotFound)
		return nil
	}
	deck, err := b.decks.GetByID(ctx, deckID)
	if err != nil {
		log.Printf("admin: %v", err)
		return nil
	}
	if deck == nil || deck.AdminTgID != msg.From.ID {
		b.reply(msg.Chat.ID, msgDeckNotFound)
		return nil
	}
	return &stringDeck{ID: deck.ID, Title: deck.Title, Token: deck.Token}
}

type stringDeck struct {
	ID    string
	Title string
	Token string
}

func (b *Bot) deckLinks(token string) string {
	name := b.api.Self.UserName
	return fmt.Sprintf("Study link: https://t.me/%s?start=deck_%s\nWatch link: https://t.me/%s?start=deckw_%s",
		name, token, name, token)
}

// /newdeck <title>
func (b *Bot) adminNewDeck(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		b.reply(msg.Chat.ID, "Usage: /newdeck <title>")
		return
	}
	deck, err := b.decks.Create(ctx, msg.From.ID, title, b.cfg.DefaultNewPerDay)
	if err != nil {
		log.Printf("admin: %v", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Created deck %q (%s)\n%s", deck.Title, packUUID(deck.ID), b.deckLinks(deck.Token)))
}

// /decks
func (b *Bot) adminListDecks(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	decks, err := b.decks.ListByAdmin(ctx, msg.From.ID)
	if err != nil {
		log.Printf("admin: %v", err)
		return
	}
	if len(decks) == 0 {
		b.reply(msg.Chat.ID, "No decks yet. /newdeck <title>")
		return
	}
	var sb strings.Builder
	for _, d := range decks {
		status := "✅"
		if !d.IsActive {
			status = "🚫"
		}
		count, err := b.cards.CountByDeck(ctx, d.ID)
		if err != nil {
			log.Printf("admin: %v", err)
		}
		fmt.Fprintf(&sb, "%s %s: %d cards, %d new/day, id %s\n", status, d.Title, count, d.NewPerDay, packUUID(d.ID))
	}
	b.reply(msg.Chat.ID, sb.String())
}

// /setperday <deck> <n>
func (b *Bot) adminSetPerDay(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /setperday <deck> <n>")
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		b.reply(msg.Chat.ID, "Please send a valid number.")
		return
	}
	deck := b.ownedDeck(ctx, msg, args[0])
	if deck == nil {
		return
	}
	if err := b.decks.UpdateNewPerDay(ctx, deck.ID, n); err != nil {
		log.Printf("admin: %v", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("%s: %d new cards per day.", deck.Title, n))
}

// /disabledeck <deck> and /enabledeck <deck>
func (b *Bot) adminSetActive(ctx context.Context, msg *tgbotapi.Message, active bool) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	deck := b.ownedDeck(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	if deck == nil {
		return
	}
	if err := b.decks.SetActive(ctx, deck.ID, active); err != nil {
		log.Printf("admin: %v", err)
		return
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("%s %s.", deck.Title, state))
}

// /deletedeck <deck>
func (b *Bot) adminDeleteDeck(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	deck := b.ownedDeck(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	if deck == nil {
		return
	}
	if err := b.decks.DeleteFull(ctx, deck.ID); err != nil {
		log.Printf("admin: %v", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Deleted %s with all its cards and progress.", deck.Title))
}

// /badcards <deck>
func (b *Bot) adminBadCards(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	deck := b.ownedDeck(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	if deck == nil {
		return
	}
	flagged, err := b.flags.ExportByDeck(ctx, deck.ID)
	if err != nil {
		log.Printf("admin: %v", err)
		return
	}
	if len(flagged) == 0 {
		b.reply(msg.Chat.ID, "No flagged cards.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Flagged cards in %s:\n", deck.Title)
	for _, f := range flagged {
		fmt.Fprintf(&sb, "%dx %s: %s\n", f.Count, f.NoteGUID, f.AnswerText)
	}
	b.reply(msg.Chat.ID, sb.String())
}

// sessionProgress summarizes a day session as answered/total cards. A cursor
// past the queue end (a lost claim mid-answer) still counts as the full queue.
func sessionProgress(sess *models.StudySession) (done, total int) {
	if sess == nil {
		return 0, 0
	}
	total = len(sess.Queue)
	done = sess.Pos
	if done > total {
		done = total
	}
	return done, total
}

// /students <deck>
func (b *Bot) adminStudents(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	deck := b.ownedDeck(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	if deck == nil {
		return
	}
	students, err := b.enrollments.ListStudents(ctx, deck.ID)
	if err != nil {
		log.Printf("admin: %v", err)
		return
	}
	if len(students) == 0 {
		b.reply(msg.Chat.ID, "No students enrolled yet.")
		return
	}
	day := b.today()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Students in %s:\n", deck.Title)
	for _, s := range students {
		sess, err := b.sessions.GetToday(ctx, s.UserID, deck.ID, day)
		if err != nil {
			log.Printf("admin: %v", err)
			continue
		}
		done, total := sessionProgress(sess)
		fmt.Fprintf(&sb, "• %d (%s): today %d/%d\n", s.TgID, s.Mode, done, total)
	}
	sb.WriteString("Remove a student with /unenroll <deck> <tg id>.")
	b.reply(msg.Chat.ID, sb.String())
}

// /unenroll <deck> <tg id> drops a student from the deck and erases their
// sessions, reviews and flags in it.
func (b *Bot) adminUnenroll(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /unenroll <deck> <tg id>")
		return
	}
	deck := b.ownedDeck(ctx, msg, args[0])
	if deck == nil {
		return
	}
	tgID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Please send the student's numeric Telegram id.")
		return
	}
	user, err := b.users.GetByTgID(ctx, tgID)
	if err != nil {
		log.Printf("admin: %v", err)
		return
	}
	if user == nil {
		b.reply(msg.Chat.ID, "Student not found.")
		return
	}
	if err := b.enrollments.Unenroll(ctx, user.ID, deck.ID); err != nil {
		log.Printf("admin: %v", err)
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Removed %d from %s and erased their progress.", tgID, deck.Title))
}

// /importdeck <deck> <path> loads a spreadsheet or CSV file that is
// already on the bot host.
func (b *Bot) adminImportDeck(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminsOnly)
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /importdeck <deck> <path>")
		return
	}
	deck := b.ownedDeck(ctx, msg, args[0])
	if deck == nil {
		return
	}
	b.reply(msg.Chat.ID, "Importing... Please wait.")
	result, err := b.importer.ImportDeck(ctx, deck.ID, importer.DefaultConfig(args[1]))
	if err != nil {
		log.Printf("admin import: %v", err)
		b.reply(msg.Chat.ID, fmt.Sprintf("Import failed: %v", err))
		return
	}
	summary := fmt.Sprintf("Imported into %s: %d created, %d skipped of %d rows.",
		deck.Title, result.Created, result.Skipped, result.TotalProcessed)
	if len(result.Errors) > 0 {
		summary += fmt.Sprintf("\n%d rows had errors, first: %s", len(result.Errors), result.Errors[0])
	}
	b.reply(msg.Chat.ID, summary)
}
