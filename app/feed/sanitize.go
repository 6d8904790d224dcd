package feed

import (
	"html"
	"regexp"
	"strings"
)

var (
	cdataPattern      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// sanitize unwraps CDATA sections, strips markup tags, and decodes HTML
// entities. Tags are stripped before entity decoding so that escaped markup
// in the source text ("&lt;b&gt;") survives as literal text.
func sanitize(s string) string {
	s = cdataPattern.ReplaceAllString(s, "$1")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
