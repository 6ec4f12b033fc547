package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ReviewState is the scheduling state of a (user, card) pair.
type ReviewState string

const (
	ReviewStateNew       ReviewState = "new"
	ReviewStateLearning  ReviewState = "learning"
	ReviewStateReview    ReviewState = "review"
	ReviewStateSuspended ReviewState = "suspended"
)

// StudyMode selects how a deck doses cards for an enrolled user.
type StudyMode string

const (
	// ModeAnki is classic SRS dosing with a daily new-card cap.
	ModeAnki StudyMode = "anki"
	// ModeWatch presents every not-yet-mastered card daily until the
	// learner answers correctly WatchTarget times in a row.
	ModeWatch StudyMode = "watch"
)

// ParseStudyMode normalizes a stored mode value, falling back to anki.
func ParseStudyMode(s string) StudyMode {
	if StudyMode(s) == ModeWatch {
		return ModeWatch
	}
	return ModeAnki
}

// StringList is a []string stored as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(s))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(s))
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}
