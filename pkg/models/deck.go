package models

import "time"

// Deck is a collection of listening cards managed by one admin
type Deck struct {
	ID        string    `json:"id" db:"id"`
	AdminTgID int64     `json:"admin_tg_id" db:"admin_tg_id"`
	Title     string    `json:"title" db:"title"`
	Token     string    `json:"token" db:"token"` // join deep-link token
	NewPerDay int       `json:"new_per_day" db:"new_per_day"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
