// Package srs holds the pure spaced-repetition transition functions. Apply
// and ApplyByMode never touch storage: they map (previous review state,
// verdict) to the next state and leave persistence to the caller.
package srs

import (
	"math"
	"time"

	"github.com/example/listenbot/internal/grader"
	"github.com/example/listenbot/pkg/models"
)

const (
	easeFloor         = 1.3
	defaultEase       = 2.5
	badEasePenalty    = 0.2
	almostEasePenalty = 0.15
	almostGrowth      = 1.2
)

// Apply runs the classic machine. A nil review means the card has no row at
// all (placeholder creation raced); it is initialized to learning step 0
// without consuming the verdict. A `new` placeholder enters learning and
// then has the verdict applied, so the first answer advances normally.
// The input review is never mutated.
func Apply(review *models.Review, verdict grader.Verdict, now time.Time, stepsMinutes []int, graduateDays int, rawAnswer string, score int) *models.Review {
	if review == nil {
		r := &models.Review{
			State:     models.ReviewStateLearning,
			StepIndex: 0,
			Ease:      defaultEase,
			DueAt:     stepDue(now, stepsMinutes, 0),
		}
		bookkeep(r, rawAnswer, score, now)
		return r
	}

	r := *review
	bookkeep(&r, rawAnswer, score, now)

	if r.State == models.ReviewStateSuspended {
		return &r
	}

	if r.State == models.ReviewStateNew {
		r.State = models.ReviewStateLearning
		r.StepIndex = 0
		r.DueAt = stepDue(now, stepsMinutes, 0)
	}

	switch r.State {
	case models.ReviewStateLearning:
		switch verdict {
		case grader.VerdictBad:
			r.StepIndex = 0
			r.DueAt = stepDue(now, stepsMinutes, 0)
		case grader.VerdictAlmost:
			// schedule the next step's delay without moving the cursor
			idx := r.StepIndex + 1
			if idx > len(stepsMinutes)-1 {
				idx = len(stepsMinutes) - 1
			}
			r.DueAt = stepDue(now, stepsMinutes, idx)
		default: // OK
			r.StepIndex++
			if r.StepIndex >= len(stepsMinutes) {
				r.State = models.ReviewStateReview
				r.IntervalDays = graduateDays
				r.DueAt = daysDue(now, graduateDays)
			} else {
				r.DueAt = stepDue(now, stepsMinutes, r.StepIndex)
			}
		}
	case models.ReviewStateReview:
		switch verdict {
		case grader.VerdictBad:
			r.Lapses++
			r.Ease = math.Max(easeFloor, r.Ease-badEasePenalty)
			r.IntervalDays = 1
			r.DueAt = daysDue(now, 1)
		case grader.VerdictAlmost:
			r.Ease = math.Max(easeFloor, r.Ease-almostEasePenalty)
			r.IntervalDays = nextInterval(r.IntervalDays, almostGrowth)
			r.DueAt = daysDue(now, r.IntervalDays)
		default: // OK
			r.IntervalDays = nextInterval(r.IntervalDays, r.Ease)
			r.DueAt = daysDue(now, r.IntervalDays)
		}
	}
	return &r
}

// ApplyByMode wraps Apply with the watch-mode mastery rule: a card answered
// correctly before any recorded failure is retired immediately; after a
// failure the learner must reach watchTarget consecutive OKs, with every
// non-OK answer resetting the streak and keeping the classic machine's
// dosing. While a watch card is in learning its due time is forced to now
// so it resurfaces in the same sitting.
func ApplyByMode(review *models.Review, verdict grader.Verdict, now time.Time, stepsMinutes []int, graduateDays int, rawAnswer string, score int, mode models.StudyMode, watchTarget int) *models.Review {
	if mode != models.ModeWatch {
		return Apply(review, verdict, now, stepsMinutes, graduateDays, rawAnswer, score)
	}

	hasFailed := review != nil && review.WatchFailed

	if !hasFailed {
		if verdict == grader.VerdictOK {
			// right on first try: nothing to dose
			return suspend(review, rawAnswer, score, now)
		}
		r := Apply(review, verdict, now, stepsMinutes, graduateDays, rawAnswer, score)
		r.WatchFailed = true
		r.WatchStreak = 0
		forceDueNow(r, now)
		return r
	}

	if verdict == grader.VerdictOK {
		streak := review.WatchStreak + 1
		if streak >= watchTarget {
			r := suspend(review, rawAnswer, score, now)
			r.WatchStreak = streak
			return r
		}
		r := Apply(review, verdict, now, stepsMinutes, graduateDays, rawAnswer, score)
		r.WatchFailed = true
		r.WatchStreak = streak
		return r
	}

	r := Apply(review, verdict, now, stepsMinutes, graduateDays, rawAnswer, score)
	r.WatchFailed = true
	r.WatchStreak = 0
	forceDueNow(r, now)
	return r
}

func suspend(review *models.Review, rawAnswer string, score int, now time.Time) *models.Review {
	r := &models.Review{Ease: defaultEase}
	if review != nil {
		copied := *review
		r = &copied
	}
	r.State = models.ReviewStateSuspended
	r.DueAt = nil
	bookkeep(r, rawAnswer, score, now)
	return r
}

func forceDueNow(r *models.Review, now time.Time) {
	if r.State == models.ReviewStateLearning {
		due := now
		r.DueAt = &due
	}
}

func bookkeep(r *models.Review, rawAnswer string, score int, now time.Time) {
	raw := rawAnswer
	sc := score
	r.LastAnswerRaw = &raw
	r.LastScore = &sc
	r.UpdatedAt = now
}

func stepDue(now time.Time, stepsMinutes []int, idx int) *time.Time {
	due := now.Add(time.Duration(stepsMinutes[idx]) * time.Minute)
	return &due
}

func daysDue(now time.Time, days int) *time.Time {
	due := now.AddDate(0, 0, days)
	return &due
}

func nextInterval(days int, factor float64) int {
	n := int(math.Round(float64(days) * factor))
	if n < 1 {
		n = 1
	}
	return n
}
