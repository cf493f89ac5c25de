package fdd

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	citationRe    = regexp.MustCompile(`(?i)\[SOURCE:\s*Item\s*(\d+)(?:,\s*Page\s*(\d+))?\]`)
	anyCitationRe = regexp.MustCompile(`(?i)\[SOURCE:.*?\]`)
)

// Source points an answer at an FDD Item and, when known, a page.
type Source struct {
	Item int
	Page *int
}

// ParseCitation splits a model answer into the answer text and its trailing
// [SOURCE: Item X, Page Y] citation. The answer is returned unchanged when no
// citation is present.
func ParseCitation(full string) (string, *Source) {
	m := citationRe.FindStringSubmatch(full)
	if m == nil {
		return strings.TrimSpace(full), nil
	}
	item, err := strconv.Atoi(m[1])
	if err != nil {
		return strings.TrimSpace(full), nil
	}
	src := &Source{Item: item}
	if m[2] != "" {
		if page, err := strconv.Atoi(m[2]); err == nil {
			src.Page = &page
		}
	}

	loc := anyCitationRe.FindStringIndex(full)
	answer := full[:loc[0]] + full[loc[1]:]
	return strings.TrimSpace(answer), src
}
