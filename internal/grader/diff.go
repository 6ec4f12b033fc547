package grader

import (
	"html"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9]+(?:'[A-Za-z0-9]+)?`)

func tokens(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// HighlightDiff renders a word-level comparison as two HTML lines:
// in the correct answer, words the user missed or got wrong are underlined;
// in the user's answer, extra or wrong words are bold.
func HighlightDiff(correct, user string) (string, string) {
	c := tokens(correct)
	u := tokens(user)

	// Map each distinct lowercased token to a rune so the character diff
	// works on whole words.
	index := map[string]rune{}
	next := rune(1)
	encode := func(ts []string) []rune {
		out := make([]rune, len(ts))
		for i, t := range ts {
			key := strings.ToLower(t)
			r, ok := index[key]
			if !ok {
				r = next
				next++
				index[key] = r
			}
			out[i] = r
		}
		return out
	}
	rc := encode(c)
	ru := encode(u)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(rc, ru, false)

	var cOut, uOut []string
	ci, ui := 0, 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for i := 0; i < n; i++ {
				cOut = append(cOut, html.EscapeString(c[ci]))
				uOut = append(uOut, html.EscapeString(u[ui]))
				ci++
				ui++
			}
		case diffmatchpatch.DiffDelete:
			// present in correct, missing from the user
			for i := 0; i < n; i++ {
				cOut = append(cOut, "<u>"+html.EscapeString(c[ci])+"</u>")
				ci++
			}
		case diffmatchpatch.DiffInsert:
			// extra in the user's answer
			for i := 0; i < n; i++ {
				uOut = append(uOut, "<b>"+html.EscapeString(u[ui])+"</b>")
				ui++
			}
		}
	}
	return strings.Join(cOut, " "), strings.Join(uOut, " ")
}
