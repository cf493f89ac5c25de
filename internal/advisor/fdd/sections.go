package fdd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinItem = 1
	MaxItem = 23

	// Shorter matches are treated as stray references, not section bodies.
	minSectionLength = 100
)

var (
	nextItemRe = regexp.MustCompile(`(?i)\n\s*ITEM\s+\d+:`)
	tocStartRe = regexp.MustCompile(`(?i)TABLE OF CONTENTS`)
	tocEndRe   = regexp.MustCompile(`(?i)\n\s*ITEM 1:|EXHIBITS:`)
	tocLineRe  = regexp.MustCompile(`(?im)ITEM\s+(\d+)\s+[A-Z\s,]+?(\d+)\s*$`)
)

// itemHeading matches "ITEM 6: OTHER FEES" but not numbered paragraphs
// such as "6. We do business".
func itemHeading(item int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)ITEM\s+%d:\s+[A-Z]`, item))
}

// ExtractSection returns the text of one Item, from its heading to the next
// Item heading or the end of the document.
func ExtractSection(content string, item int) (string, bool) {
	loc := itemHeading(item).FindStringIndex(content)
	if loc == nil {
		return "", false
	}
	start := loc[0]
	end := len(content)
	if next := nextItemRe.FindStringIndex(content[loc[1]:]); next != nil {
		end = loc[1] + next[0]
	}
	section := content[start:end]
	if len(section) <= minSectionLength {
		return "", false
	}
	return section, true
}

// ExtractSections concatenates the requested Items under "=== ITEM N ==="
// banners and reports which Items were found.
func ExtractSections(content string, items []int) (string, []int) {
	var b strings.Builder
	found := make([]int, 0, len(items))
	for _, item := range items {
		section, ok := ExtractSection(content, item)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n\n=== ITEM %d ===\n%s\n", item, section)
		found = append(found, item)
	}
	return b.String(), found
}

// ParseTableOfContents maps Item numbers to their starting page using lines
// such as "ITEM 6  OTHER FEES 4". It returns an empty map when the document
// has no table of contents.
func ParseTableOfContents(content string) map[int]int {
	pages := make(map[int]int)
	start := tocStartRe.FindStringIndex(content)
	if start == nil {
		return pages
	}
	rest := content[start[0]:]
	end := tocEndRe.FindStringIndex(rest)
	if end == nil {
		return pages
	}
	toc := rest[:end[0]]

	for _, m := range tocLineRe.FindAllStringSubmatch(toc, -1) {
		item, err := strconv.Atoi(m[1])
		if err != nil || item < MinItem || item > MaxItem {
			continue
		}
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		pages[item] = page
	}
	return pages
}
