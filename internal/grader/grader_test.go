package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  Hello World  ", "hello world"},
		{"punctuation stripped", "Hello, world!", "hello world"},
		{"apostrophe folded", "don’t", "don't"},
		{"whitespace collapsed", "a   b\tc", "a b c"},
		{"stray symbols dropped", "café & bar", "caf bar"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score("", ""))
	assert.Equal(t, 100, Score("hello world", "hello world"))
	assert.Equal(t, 0, Score("", "hello"))

	// one of four characters differs on each side
	assert.Equal(t, 75, Score("abcd", "abce"))

	// close answers score high, unrelated ones low
	assert.Greater(t, Score("i have a dream", "i have a drem"), 85)
	assert.Less(t, Score("i have a dream", "completely different"), 50)
}

func TestGradeVerdicts(t *testing.T) {
	const ok, almost = 93, 85

	t.Run("exact match is OK", func(t *testing.T) {
		r := Grade("Hello, world!", "hello world", nil, ok, almost)
		assert.Equal(t, VerdictOK, r.Verdict)
		assert.Equal(t, 100, r.Score)
	})

	t.Run("small typo is ALMOST", func(t *testing.T) {
		r := Grade("i hav a dreem today", "I have a dream today", nil, ok, almost)
		assert.Equal(t, VerdictAlmost, r.Verdict)
	})

	t.Run("unrelated answer is BAD", func(t *testing.T) {
		r := Grade("something else entirely", "I have a dream today", nil, ok, almost)
		assert.Equal(t, VerdictBad, r.Verdict)
	})

	t.Run("best alternate wins", func(t *testing.T) {
		r := Grade("the colour is grey", "the color is gray",
			[]string{"the colour is grey"}, ok, almost)
		assert.Equal(t, VerdictOK, r.Verdict)
		assert.Equal(t, "the colour is grey", r.BestMatch)
	})

	t.Run("empty answer against empty correct", func(t *testing.T) {
		r := Grade("", "", nil, ok, almost)
		assert.Equal(t, VerdictOK, r.Verdict)
	})
}

func TestHighlightDiff(t *testing.T) {
	t.Run("identical answers have no markup", func(t *testing.T) {
		c, u := HighlightDiff("hello world", "hello world")
		assert.Equal(t, "hello world", c)
		assert.Equal(t, "hello world", u)
	})

	t.Run("missed word underlined, extra word bold", func(t *testing.T) {
		c, u := HighlightDiff("i have a dream", "i have big dream")
		assert.Contains(t, c, "<u>a</u>")
		assert.Contains(t, u, "<b>big</b>")
		assert.Contains(t, c, "dream")
		assert.Contains(t, u, "dream")
	})

	t.Run("case differences are equal", func(t *testing.T) {
		c, u := HighlightDiff("Hello World", "hello world")
		assert.NotContains(t, c, "<u>")
		assert.NotContains(t, u, "<b>")
	})

	t.Run("empty user answer underlines everything", func(t *testing.T) {
		c, u := HighlightDiff("a b", "")
		assert.Equal(t, "<u>a</u> <u>b</u>", c)
		assert.Equal(t, "", u)
	})
}
