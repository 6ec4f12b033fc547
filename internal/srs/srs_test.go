package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/listenbot/internal/grader"
	"github.com/example/listenbot/pkg/models"
)

var (
	steps   = []int{1, 10}
	gradDay = 1
)

func learningReview(step int) *models.Review {
	due := time.Now().UTC()
	return &models.Review{
		State:     models.ReviewStateLearning,
		StepIndex: step,
		Ease:      2.5,
		DueAt:     &due,
	}
}

func reviewReview(interval int, ease float64) *models.Review {
	due := time.Now().UTC()
	return &models.Review{
		State:        models.ReviewStateReview,
		IntervalDays: interval,
		Ease:         ease,
		DueAt:        &due,
	}
}

func TestApplyNilReviewEntersLearning(t *testing.T) {
	now := time.Now().UTC()
	r := Apply(nil, grader.VerdictOK, now, steps, gradDay, "ans", 100)

	assert.Equal(t, models.ReviewStateLearning, r.State)
	assert.Equal(t, 0, r.StepIndex)
	require.NotNil(t, r.DueAt)
	assert.Equal(t, now.Add(time.Minute), *r.DueAt)
	assert.InDelta(t, 2.5, r.Ease, 1e-9)
}

func TestApplyNewPlaceholderConsumesVerdict(t *testing.T) {
	// A placeholder row exists from first exposure, so the first correct
	// answer advances to step 1.
	now := time.Now().UTC()
	placeholder := &models.Review{State: models.ReviewStateNew, Ease: 2.5}

	r := Apply(placeholder, grader.VerdictOK, now, steps, gradDay, "ans", 100)

	assert.Equal(t, models.ReviewStateLearning, r.State)
	assert.Equal(t, 1, r.StepIndex)
	require.NotNil(t, r.DueAt)
	assert.Equal(t, now.Add(10*time.Minute), *r.DueAt)
}

func TestApplyLearningTransitions(t *testing.T) {
	now := time.Now().UTC()

	t.Run("BAD resets to step zero", func(t *testing.T) {
		r := Apply(learningReview(1), grader.VerdictBad, now, steps, gradDay, "x", 10)
		assert.Equal(t, models.ReviewStateLearning, r.State)
		assert.Equal(t, 0, r.StepIndex)
		assert.Equal(t, now.Add(time.Minute), *r.DueAt)
	})

	t.Run("ALMOST repeats with next step delay", func(t *testing.T) {
		r := Apply(learningReview(0), grader.VerdictAlmost, now, steps, gradDay, "x", 88)
		assert.Equal(t, 0, r.StepIndex)
		assert.Equal(t, now.Add(10*time.Minute), *r.DueAt)
	})

	t.Run("OK advances a step", func(t *testing.T) {
		r := Apply(learningReview(0), grader.VerdictOK, now, steps, gradDay, "x", 100)
		assert.Equal(t, models.ReviewStateLearning, r.State)
		assert.Equal(t, 1, r.StepIndex)
		assert.Equal(t, now.Add(10*time.Minute), *r.DueAt)
	})

	t.Run("OK past the last step graduates", func(t *testing.T) {
		r := Apply(learningReview(1), grader.VerdictOK, now, steps, gradDay, "x", 100)
		assert.Equal(t, models.ReviewStateReview, r.State)
		assert.Equal(t, gradDay, r.IntervalDays)
		assert.Equal(t, now.AddDate(0, 0, gradDay), *r.DueAt)
	})
}

func TestApplyReviewTransitions(t *testing.T) {
	now := time.Now().UTC()

	t.Run("BAD lapses back to one day", func(t *testing.T) {
		r := Apply(reviewReview(10, 2.5), grader.VerdictBad, now, steps, gradDay, "x", 0)
		assert.Equal(t, models.ReviewStateReview, r.State)
		assert.Equal(t, 1, r.Lapses)
		assert.InDelta(t, 2.3, r.Ease, 1e-9)
		assert.Equal(t, 1, r.IntervalDays)
		assert.Equal(t, now.AddDate(0, 0, 1), *r.DueAt)
	})

	t.Run("ALMOST grows slowly and drops ease", func(t *testing.T) {
		r := Apply(reviewReview(10, 2.5), grader.VerdictAlmost, now, steps, gradDay, "x", 88)
		assert.InDelta(t, 2.35, r.Ease, 1e-9)
		assert.Equal(t, 12, r.IntervalDays)
	})

	t.Run("OK multiplies by ease", func(t *testing.T) {
		r := Apply(reviewReview(10, 2.5), grader.VerdictOK, now, steps, gradDay, "x", 100)
		assert.Equal(t, 25, r.IntervalDays)
		assert.InDelta(t, 2.5, r.Ease, 1e-9)
	})

	t.Run("ease never falls below the floor", func(t *testing.T) {
		r := Apply(reviewReview(10, 1.35), grader.VerdictBad, now, steps, gradDay, "x", 0)
		assert.InDelta(t, 1.3, r.Ease, 1e-9)

		r = Apply(r, grader.VerdictBad, now, steps, gradDay, "x", 0)
		assert.InDelta(t, 1.3, r.Ease, 1e-9)
	})

	t.Run("interval never rounds to zero", func(t *testing.T) {
		r := Apply(reviewReview(1, 1.3), grader.VerdictAlmost, now, steps, gradDay, "x", 88)
		assert.GreaterOrEqual(t, r.IntervalDays, 1)
	})
}

func TestApplySuspendedOnlyBookkeeps(t *testing.T) {
	now := time.Now().UTC()
	r := Apply(&models.Review{State: models.ReviewStateSuspended, Ease: 2.5},
		grader.VerdictOK, now, steps, gradDay, "late answer", 100)

	assert.Equal(t, models.ReviewStateSuspended, r.State)
	assert.Nil(t, r.DueAt)
	require.NotNil(t, r.LastAnswerRaw)
	assert.Equal(t, "late answer", *r.LastAnswerRaw)
	require.NotNil(t, r.LastScore)
	assert.Equal(t, 100, *r.LastScore)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	now := time.Now().UTC()
	in := learningReview(0)
	_ = Apply(in, grader.VerdictOK, now, steps, gradDay, "x", 100)
	assert.Equal(t, 0, in.StepIndex)
	assert.Nil(t, in.LastScore)
}

func TestWatchFirstOKSuspends(t *testing.T) {
	now := time.Now().UTC()
	r := ApplyByMode(nil, grader.VerdictOK, now, steps, gradDay, "ans", 100, models.ModeWatch, 2)

	assert.Equal(t, models.ReviewStateSuspended, r.State)
	assert.Nil(t, r.DueAt)
	assert.False(t, r.WatchFailed)
	assert.Equal(t, 0, r.WatchStreak)
}

func TestWatchFirstFailureEntersMachineDueNow(t *testing.T) {
	now := time.Now().UTC()
	r := ApplyByMode(nil, grader.VerdictBad, now, steps, gradDay, "ans", 0, models.ModeWatch, 2)

	assert.True(t, r.WatchFailed)
	assert.Equal(t, 0, r.WatchStreak)
	assert.Equal(t, models.ReviewStateLearning, r.State)
	require.NotNil(t, r.DueAt)
	assert.False(t, r.DueAt.After(now))
}

func TestWatchRequiresConsecutiveOKsAfterFailure(t *testing.T) {
	now := time.Now().UTC()
	apply := func(r *models.Review, v grader.Verdict, at time.Time) *models.Review {
		return ApplyByMode(r, v, at, steps, gradDay, "ans", 0, models.ModeWatch, 2)
	}

	r := apply(nil, grader.VerdictBad, now)
	assert.True(t, r.WatchFailed)

	r = apply(r, grader.VerdictOK, now.Add(time.Minute))
	assert.Equal(t, 1, r.WatchStreak)
	assert.NotEqual(t, models.ReviewStateSuspended, r.State)

	// a failure resets the streak and forces the card due again
	r = apply(r, grader.VerdictBad, now.Add(2*time.Minute))
	assert.Equal(t, 0, r.WatchStreak)
	require.NotNil(t, r.DueAt)
	assert.False(t, r.DueAt.After(now.Add(2*time.Minute)))

	r = apply(r, grader.VerdictOK, now.Add(3*time.Minute))
	r = apply(r, grader.VerdictOK, now.Add(4*time.Minute))

	assert.GreaterOrEqual(t, r.WatchStreak, 2)
	assert.Equal(t, models.ReviewStateSuspended, r.State)
	assert.Nil(t, r.DueAt)
}

func TestWatchAlmostIsNotOK(t *testing.T) {
	now := time.Now().UTC()
	r := ApplyByMode(nil, grader.VerdictAlmost, now, steps, gradDay, "ans", 90, models.ModeWatch, 2)
	assert.True(t, r.WatchFailed)

	r = ApplyByMode(r, grader.VerdictOK, now, steps, gradDay, "ans", 100, models.ModeWatch, 2)
	r = ApplyByMode(r, grader.VerdictAlmost, now, steps, gradDay, "ans", 90, models.ModeWatch, 2)
	assert.Equal(t, 0, r.WatchStreak)
	assert.NotEqual(t, models.ReviewStateSuspended, r.State)
}

func TestAnkiModePassesThrough(t *testing.T) {
	now := time.Now().UTC()
	r := ApplyByMode(learningReview(0), grader.VerdictOK, now, steps, gradDay, "ans", 100, models.ModeAnki, 2)
	assert.Equal(t, 1, r.StepIndex)
	assert.False(t, r.WatchFailed)
}
