package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fddhub/internal/engagement/repository"
)

// Hot-lead thresholds. Crossing any one of them counts.
const (
	HotTimeSpentSeconds = 600
	HotViewedItems      = 5
	HotQuestions        = 3
)

// FDD items are numbered 1 through 23.
const (
	firstItem = 1
	lastItem  = 23
)

var itemPattern = regexp.MustCompile(`(?i)^\s*item\s*(\d+)\s*$`)

// Merge folds in into existing without ever losing recorded progress.
// It is the in-memory twin of the repository's upsert statement.
func Merge(existing *repository.Engagement, in repository.Update, now time.Time) repository.Engagement {
	var out repository.Engagement
	if existing != nil {
		out = *existing
	}

	out.TimeSpent = max(out.TimeSpent, in.TimeSpent)
	out.ViewedItems = union(out.ViewedItems, in.ViewedItems)
	out.QuestionsList = union(out.QuestionsList, in.Questions)
	out.SectionsViewed = union(out.SectionsViewed, in.SectionsViewed)

	out.ViewedItem19 = out.ViewedItem19 || contains(in.ViewedItems, 19)
	out.ViewedItem7 = out.ViewedItem7 || contains(in.ViewedItems, 7)
	out.SpentSignificantTime = out.SpentSignificantTime || in.TimeSpent >= repository.SignificantTimeSeconds
	out.LastActivity = now
	return out
}

// IsHot reports whether e meets any hot-lead threshold. A nil record is never hot.
func IsHot(e *repository.Engagement) bool {
	if e == nil {
		return false
	}
	return e.TimeSpent >= HotTimeSpentSeconds ||
		len(e.ViewedItems) >= HotViewedItems ||
		len(e.QuestionsList) >= HotQuestions
}

// ParseViewedItems accepts item numbers as JSON numbers, "item7" style
// labels or plain numeric strings. Fractions and numbers outside the FDD
// item range are dropped, as is anything else.
func ParseViewedItems(raw []any) []int {
	items := make([]int, 0, len(raw))
	add := func(n int) {
		if n >= firstItem && n <= lastItem {
			items = append(items, n)
		}
	}
	for _, value := range raw {
		switch v := value.(type) {
		case float64:
			if v == math.Trunc(v) && v >= firstItem && v <= lastItem {
				add(int(v))
			}
		case int:
			add(v)
		case string:
			label := strings.TrimSpace(v)
			if m := itemPattern.FindStringSubmatch(label); m != nil {
				label = m[1]
			}
			if n, err := strconv.Atoi(label); err == nil {
				add(n)
			}
		}
	}
	return items
}

// CleanStrings trims entries and drops empty ones.
func CleanStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func union[T comparable](base, extra []T) []T {
	seen := make(map[T]struct{}, len(base)+len(extra))
	out := make([]T, 0, len(base)+len(extra))
	for _, list := range [][]T{base, extra} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func contains(items []int, target int) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
