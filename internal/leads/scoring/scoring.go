// Package scoring computes the lead quality score. It is the only place the
// formula lives; every endpoint that shows a score calls ComputeScore.
package scoring

import (
	"math"
	"strconv"
)

// Intent labels.
const (
	IntentHigh   = "High"
	IntentMedium = "Medium"
	IntentLow    = "Low"
)

const (
	baseVerified = 50

	timePointsPerMinute = 2
	timeCap             = 20

	questionPoints = 4
	questionCap    = 15

	coverageCap = 5

	sessionPoints = 2
	sessionCap    = 10

	highThreshold   = 75
	mediumThreshold = 50
)

// Engagement is the scoring view of one engagement record.
type Engagement struct {
	TimeSpentSeconds int
	QuestionCount    int
	SectionsViewed   []string
	ViewedItems      []int
}

// Input is everything a score depends on.
type Input struct {
	Engagements  []Engagement
	SessionCount int
	// Verified is true once the lead holds any FDD access grant.
	Verified bool
}

// Breakdown lists the points each component contributed.
type Breakdown struct {
	Base     int `json:"base"`
	Time     int `json:"time"`
	Question int `json:"questions"`
	Coverage int `json:"coverage"`
	Session  int `json:"sessions"`
}

// Score is the result of ComputeScore.
type Score struct {
	Score     int       `json:"score"`
	Intent    string    `json:"intent"`
	Breakdown Breakdown `json:"breakdown"`
}

// ComputeScore is pure: identical input always yields identical output.
func ComputeScore(in Input) Score {
	var totalSeconds, totalQuestions int
	coverage := make(map[string]struct{})
	for _, e := range in.Engagements {
		totalSeconds += max(e.TimeSpentSeconds, 0)
		totalQuestions += max(e.QuestionCount, 0)
		for _, s := range e.SectionsViewed {
			coverage["s:"+s] = struct{}{}
		}
		for _, item := range e.ViewedItems {
			coverage[itemKey(item)] = struct{}{}
		}
	}

	var b Breakdown
	if in.Verified {
		b.Base = baseVerified
	}
	minutes := float64(totalSeconds) / 60
	b.Time = int(math.Round(math.Min(minutes*timePointsPerMinute, timeCap)))
	b.Question = min(totalQuestions*questionPoints, questionCap)
	b.Coverage = min(len(coverage), coverageCap)
	b.Session = min(max(in.SessionCount, 0)*sessionPoints, sessionCap)

	total := b.Base + b.Time + b.Question + b.Coverage + b.Session
	total = min(max(total, 0), 100)

	return Score{Score: total, Intent: IntentFor(total), Breakdown: b}
}

// IntentFor maps a score to its intent label.
func IntentFor(score int) string {
	switch {
	case score >= highThreshold:
		return IntentHigh
	case score >= mediumThreshold:
		return IntentMedium
	default:
		return IntentLow
	}
}

// An item number and its "itemN" section label count once.
func itemKey(item int) string {
	return "s:item" + strconv.Itoa(item)
}
