package grader

import (
	"math"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Verdict is the three-way grading outcome for a typed answer.
type Verdict string

const (
	VerdictOK     Verdict = "OK"
	VerdictAlmost Verdict = "ALMOST"
	VerdictBad    Verdict = "BAD"
)

// Result carries the similarity score (0-100), the verdict derived from the
// configured thresholds, and the candidate answer that scored best.
type Result struct {
	Score     int
	Verdict   Verdict
	BestMatch string
}

var (
	apostropheRe = regexp.MustCompile("[’`´]")
	punctRe      = regexp.MustCompile(`[\.,!?;:"“”\(\)\[\]\{\}—\-…]`)
	strayRe      = regexp.MustCompile(`[^a-z0-9\s']`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Normalize folds an answer for comparison: lowercase, unified apostrophes,
// punctuation stripped, whitespace collapsed.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = apostropheRe.ReplaceAllString(t, "'")
	t = punctRe.ReplaceAllString(t, " ")
	t = strayRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Score returns the similarity of two normalized strings as 0-100:
// the matched share of both strings under a character-level diff.
func Score(a, b string) int {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 100
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	changed := 0
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			changed += len([]rune(d.Text))
		}
	}
	total := la + lb
	return int(math.Round(100 * float64(total-changed) / float64(total)))
}

// Grade compares the learner's raw text against the canonical answer and
// every acceptable alternate, keeping the best score.
func Grade(userText, correctText string, altAnswers []string, okThreshold, almostThreshold int) Result {
	u := Normalize(userText)
	candidates := append([]string{correctText}, altAnswers...)

	best := -1
	bestMatch := correctText
	for _, c := range candidates {
		sc := Score(u, Normalize(c))
		if sc > best {
			best = sc
			bestMatch = c
		}
	}

	verdict := VerdictBad
	switch {
	case best >= okThreshold:
		verdict = VerdictOK
	case best >= almostThreshold:
		verdict = VerdictAlmost
	}
	return Result{Score: best, Verdict: verdict, BestMatch: bestMatch}
}
