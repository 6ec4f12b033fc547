package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/listenbot/internal/grader"
)

func TestFormatCompare(t *testing.T) {
	t.Run("perfect answer", func(t *testing.T) {
		out := formatCompare("i have a dream", "i have a dream", 100, grader.VerdictOK, "")
		lines := strings.Split(out, "\n")
		assert.Equal(t, "✅ 100/100", lines[0])
		assert.Equal(t, "Correct: i have a dream", lines[1])
		assert.Equal(t, "You: i have a dream", lines[2])
	})

	t.Run("bad answer highlights the diff", func(t *testing.T) {
		out := formatCompare("i have a dream", "i have big dream", 70, grader.VerdictBad, "")
		assert.True(t, strings.HasPrefix(out, "❌ 70/100"))
		assert.Contains(t, out, "<u>a</u>")
		assert.Contains(t, out, "<b>big</b>")
	})

	t.Run("secondary language line included", func(t *testing.T) {
		out := formatCompare("hello", "hello", 100, grader.VerdictOK, "привіт")
		assert.Contains(t, out, "UA: привіт")
	})

	t.Run("almost verdict icon", func(t *testing.T) {
		out := formatCompare("hello", "helo", 89, grader.VerdictAlmost, "")
		assert.True(t, strings.HasPrefix(out, "🟨 89/100"))
	})

	t.Run("feedback shows the closest accepted answer", func(t *testing.T) {
		r := grader.Grade("i have dreams", "i have a dream", []string{"i have dreams"}, 93, 85)
		assert.Equal(t, "i have dreams", r.BestMatch)
		out := formatCompare(r.BestMatch, "i have dreams", r.Score, r.Verdict, "")
		lines := strings.Split(out, "\n")
		assert.Equal(t, "✅ 100/100", lines[0])
		assert.Equal(t, "Correct: i have dreams", lines[1])
	})

	t.Run("overlong output truncated", func(t *testing.T) {
		long := strings.Repeat("word ", 1500)
		out := formatCompare(long, long, 100, grader.VerdictOK, "")
		assert.LessOrEqual(t, len(out), 3500)
		assert.True(t, strings.HasSuffix(out, "..."))
	})
}
