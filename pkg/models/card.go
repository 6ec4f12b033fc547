package models

import "time"

// Media kinds a card can carry.
const (
	MediaAudio = "audio"
	MediaVideo = "video"
)

// Card is a single listening exercise. Cards are immutable once imported:
// the study core never mutates them and they go away only with the deck.
type Card struct {
	ID          string     `json:"id" db:"id"`
	DeckID      string     `json:"deck_id" db:"deck_id"`
	NoteGUID    string     `json:"note_guid" db:"note_guid"` // content identity, unique per deck
	AnswerText  string     `json:"answer_text" db:"answer_text"`
	AltAnswers  StringList `json:"alt_answers" db:"alt_answers"`
	MediaKind   string     `json:"media_kind" db:"media_kind"`
	FileID      string     `json:"file_id" db:"tg_file_id"`
	MediaSHA256 string     `json:"media_sha256" db:"media_sha256"`
	IsValid     bool       `json:"is_valid" db:"is_valid"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
