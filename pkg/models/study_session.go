package models

import "time"

// DateLayout is the calendar-day key format for study sessions.
const DateLayout = "2006-01-02"

// StudySession is one user's work queue for one deck on one calendar day.
// Unique on (user, deck, study_date). Queue is frozen at creation and only
// grows through explicit extension; Pos tracks progress through it.
// CurrentCardID is the card presently shown, nil when none is outstanding.
type StudySession struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	DeckID        string     `json:"deck_id" db:"deck_id"`
	StudyDate     string     `json:"study_date" db:"study_date"`
	Queue         StringList `json:"queue" db:"queue"`
	Pos           int        `json:"pos" db:"pos"`
	CurrentCardID *string    `json:"current_card_id" db:"current_card_id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Current returns the outstanding card id, or "" when none.
func (s *StudySession) Current() string {
	if s == nil || s.CurrentCardID == nil {
		return ""
	}
	return *s.CurrentCardID
}
