package bot

import (
	"context"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/listenbot/pkg/models"
)

// dotTip masks the answer as dots, keeping only the very first and very last
// letter visible, so the learner knows the shape of the sentence without
// seeing it. Returns "" for text with no usable characters.
func dotTip(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	first, last, ok := firstLastLetters(text)
	if !ok {
		return ""
	}

	masked := make([][]rune, len(words))
	for i, word := range words {
		n := 0
		for _, ch := range word {
			if unicode.IsLetter(ch) {
				n++
			}
		}
		if n == 0 {
			n = len([]rune(word))
		}
		if n == 0 {
			n = 1
		}
		masked[i] = []rune(strings.Repeat(".", n))
	}
	masked[0][0] = first
	lastWord := masked[len(masked)-1]
	lastWord[len(lastWord)-1] = last

	parts := make([]string, len(masked))
	for i, w := range masked {
		parts[i] = string(w)
	}
	return strings.Join(parts, " ")
}

func firstLastLetters(text string) (first, last rune, ok bool) {
	var letters []rune
	for _, ch := range text {
		if unicode.IsLetter(ch) {
			letters = append(letters, ch)
		}
	}
	if len(letters) > 0 {
		return letters[0], letters[len(letters)-1], true
	}
	stripped := []rune(strings.TrimSpace(text))
	if len(stripped) == 0 {
		return 0, 0, false
	}
	return stripped[0], stripped[len(stripped)-1], true
}

// SendCard delivers a card's media with the dot tip as caption and the
// bad-card button attached. Satisfies the scheduler's Sender.
func (b *Bot) SendCard(ctx context.Context, chatID int64, card *models.Card) error {
	caption := ""
	if tip := dotTip(card.AnswerText); tip != "" {
		caption = "Tip: " + tip
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Bad card", callbackData(cbKindBad, card.ID)),
		),
	)

	file := tgbotapi.FileID(card.FileID)
	var msg tgbotapi.Chattable
	if card.MediaKind == models.MediaVideo {
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption = caption
		v.ReplyMarkup = keyboard
		msg = v
	} else {
		a := tgbotapi.NewAudio(chatID, file)
		a.Caption = caption
		a.ReplyMarkup = keyboard
		msg = a
	}
	_, err := b.api.Send(msg)
	return err
}

func studyMoreKeyboard(deckID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Study more", callbackData(cbKindMore, deckID)),
		),
	)
}
