// Package match checks output lines against rules. Matching is deliberately
// simple: a rule matches a line when the line contains the rule's pattern as
// a literal, case-sensitive substring. No regexp or wildcard interpretation
// is applied, so a pattern copied straight out of an error message just works.
package match

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/catcher-sh/catcher/internal/rules"
)

// Match records one rule that matched an output line.
type Match struct {
	// Rule is the rule that matched.
	Rule rules.Rule

	// Text is the matched substring. For literal patterns this is the
	// pattern itself; the loop guard keys on it.
	Text string

	// Index is the byte offset of the first occurrence in the line.
	Index int
}

// Line checks a line against each rule in declaration order and returns one
// Match per matching rule. A rule matches at most once per line, even when
// its pattern occurs several times. Returns nil when nothing matches.
func Line(text string, rs []rules.Rule) []Match {
	if text == "" || len(rs) == 0 {
		return nil
	}

	var matches []Match
	for _, r := range rs {
		if idx := strings.Index(text, r.Pattern); idx >= 0 {
			matches = append(matches, Match{
				Rule:  r,
				Text:  r.Pattern,
				Index: idx,
			})
		}
	}
	return matches
}

// StripANSI removes ANSI escape sequences (colors, cursor movement, OSC
// titles) from a line so patterns match the text a human sees. Build tools
// love coloring the word "error"; rules should not have to care.
func StripANSI(text string) string {
	return ansi.Strip(text)
}
