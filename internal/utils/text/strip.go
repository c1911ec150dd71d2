// Package text provides small text-processing helpers shared across the
// pipeline: HTML stripping for feed summaries and error bodies, and
// length-bounded truncation for log output.
package text

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripTags removes HTML markup from s and collapses the remaining
// whitespace to single spaces. It is deliberately crude: it is used to turn
// HTML-bearing feed descriptions and classification-service error pages into
// loggable plain text, not to sanitize untrusted markup for rendering.
//
// Examples:
//
//	StripTags("<p>hello <b>world</b></p>")  // "hello world"
//	StripTags("plain")                      // "plain"
func StripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. Rune-based so multi-byte text is never split mid-character.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
