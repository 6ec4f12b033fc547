package models

import "time"

// Enrollment links a user to a deck with a study mode. Unique on (user, deck).
type Enrollment struct {
	ID       string    `json:"id" db:"id"`
	UserID   string    `json:"user_id" db:"user_id"`
	DeckID   string    `json:"deck_id" db:"deck_id"`
	Mode     string    `json:"mode" db:"mode"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// PushTarget is one enrollment flattened for the daily push: who to message
// and which (user, deck) session to create.
type PushTarget struct {
	ChatID int64  `db:"tg_id"`
	UserID string `db:"user_id"`
	DeckID string `db:"deck_id"`
}
