// Package sanitize cleans user-supplied text before it is stored or placed
// into emails.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Text strips HTML tags, including entity-encoded ones, and collapses runs of
// whitespace to a single space.
func Text(s string) string {
	out := tagRe.ReplaceAllString(s, "")
	out = tagRe.ReplaceAllString(html.UnescapeString(out), "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(out, " "))
}

// Optional cleans v and maps empty results to nil.
func Optional(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := Text(*v)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// Email trims and lowercases an address for comparison and storage.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
