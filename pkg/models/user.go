package models

import "time"

// User is a learner known by their Telegram id
type User struct {
	ID        string    `json:"id" db:"id"`
	TgID      int64     `json:"tg_id" db:"tg_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
