package transport

import "time"

// TrackRequest is a viewer's tracking report. viewedItems may hold numbers
// or labels such as "item19".
type TrackRequest struct {
	FranchiseID    string   `json:"franchiseId"`
	TimeSpent      int      `json:"timeSpent" validate:"gte=0"`
	SectionsViewed []string `json:"sectionsViewed"`
	ViewedItems    []any    `json:"viewedItems"`
	QuestionsAsked []string `json:"questionsAsked"`
	NewSession     bool     `json:"newSession"`
}

type EngagementResponse struct {
	ID                   string    `json:"id"`
	BuyerID              string    `json:"buyerId"`
	FranchiseID          string    `json:"franchiseId"`
	TimeSpent            int       `json:"timeSpent"`
	ViewedItems          []int     `json:"viewedItems"`
	QuestionsList        []string  `json:"questionsList"`
	SectionsViewed       []string  `json:"sectionsViewed"`
	ViewedItem19         bool      `json:"viewedItem19"`
	ViewedItem7          bool      `json:"viewedItem7"`
	SpentSignificantTime bool      `json:"spentSignificantTime"`
	LastActivity         time.Time `json:"lastActivity"`
}

type TrackResponse struct {
	Success    bool                `json:"success"`
	Engagement *EngagementResponse `json:"engagement"`
}

type GetResponse struct {
	Engagement *EngagementResponse `json:"engagement"`
}
