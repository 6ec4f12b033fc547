package models

import "time"

// Flag records a learner reporting a broken card.
type Flag struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CardID    string    `json:"card_id" db:"card_id"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
