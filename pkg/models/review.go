package models

import "time"

// Review is the per-(user, card) scheduling state, created lazily the first
// time a card is shown. Invariant: DueAt is set if and only if State is
// learning or review.
type Review struct {
	UserID string      `json:"user_id" db:"user_id"`
	CardID string      `json:"card_id" db:"card_id"`
	State  ReviewState `json:"state" db:"state"`
	DueAt  *time.Time  `json:"due_at" db:"due_at"`

	Ease         float64 `json:"ease" db:"ease"`                   // review-state multiplier, never below 1.3
	IntervalDays int     `json:"interval_days" db:"interval_days"` // current review interval
	StepIndex    int     `json:"step_index" db:"step_index"`       // learning-state step cursor
	Lapses       int     `json:"lapses" db:"lapses"`

	// Diagnostics only; never consulted for scheduling.
	LastAnswerRaw *string `json:"last_answer_raw" db:"last_answer_raw"`
	LastScore     *int    `json:"last_score" db:"last_score"`

	// Watch-mode bookkeeping.
	WatchFailed bool `json:"watch_failed" db:"watch_failed"`
	WatchStreak int  `json:"watch_streak" db:"watch_streak"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
