// Package sanitize turns raw chat text into something a speech engine can read.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

const maxRepeat = 5

var (
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	customEmojiPattern = regexp.MustCompile(`<a?:(\w+):\d+>`)
	mentionPattern     = regexp.MustCompile(`<(@[!&]?|#)\d+>`)
	timestampPattern   = regexp.MustCompile(`<t:\d+(:[tTdDfFR])?>`)
	quotePattern       = regexp.MustCompile(`(?m)^[ \t]*>{1,3}[ \t]?`)
	markdownReplacer   = strings.NewReplacer("||", "", "**", "", "__", "", "~~", "", "`", "", "*", "")
)

// Text returns a speakable version of raw. It never fails; the result may be
// empty when nothing speakable remains.
func Text(raw string) string {
	s := urlPattern.ReplaceAllString(raw, "link")
	s = customEmojiPattern.ReplaceAllString(s, "$1")
	s = mentionPattern.ReplaceAllString(s, "")
	s = timestampPattern.ReplaceAllString(s, "")
	s = quotePattern.ReplaceAllString(s, "")
	s = markdownReplacer.Replace(s)
	s = collapseRepeats(s, maxRepeat)
	return strings.Join(strings.Fields(s), " ")
}

// collapseRepeats shortens runs of the same rune longer than limit.
func collapseRepeats(s string, limit int) string {
	var (
		b    strings.Builder
		prev rune
		run  int
	)
	b.Grow(len(s))
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= limit {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Length counts user-perceived characters (grapheme clusters).
func Length(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Truncate cuts s to at most limit grapheme clusters and reports whether
// anything was removed.
func Truncate(s string, limit int) (string, bool) {
	if limit <= 0 {
		return "", s != ""
	}

	count := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if count == limit {
			start, _ := g.Positions()
			return s[:start], true
		}
		count++
	}
	return s, false
}
