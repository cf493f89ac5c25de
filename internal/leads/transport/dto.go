package transport

import (
	"time"

	"fddhub/internal/leads/scoring"
)

type LeadResponse struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Phone                 string     `json:"phone"`
	Brand                 string     `json:"brand"`
	FranchiseID           string     `json:"franchiseId"`
	FranchiseSlug         string     `json:"franchiseSlug"`
	BuyerID               *string    `json:"buyerId"`
	InvitationStatus      string     `json:"invitationStatus"`
	InvitationSentAt      time.Time  `json:"invitationSentAt"`
	ExpiresAt             time.Time  `json:"expiresAt"`
	Source                string     `json:"source"`
	Timeline              *string    `json:"timeline"`
	City                  string     `json:"city"`
	State                 string     `json:"state"`
	Location              string     `json:"location"`
	TargetLocation        *string    `json:"targetLocation"`
	StageID               *string    `json:"stageId"`
	StageName             *string    `json:"stageName"`
	StageColor            *string    `json:"stageColor"`
	StageChangedAt        *time.Time `json:"stageChangedAt"`
	DaysInStage           int        `json:"daysInStage"`
	FDDAccessAt           *time.Time `json:"fddAccessAt"`
	ConsentGivenAt        *time.Time `json:"consentGivenAt"`
	Item23SignedAt        *time.Time `json:"item23SignedAt"`
	ReceiptSignedAt       *time.Time `json:"receiptSignedAt"`
	TotalViews            int        `json:"totalViews"`
	TotalTimeSpentSeconds int        `json:"totalTimeSpent"`
	SectionsViewed        []string   `json:"sectionsViewed"`
	QuestionsAsked        int        `json:"questionsAsked"`
	LastActivity          time.Time  `json:"lastActivity"`
	QualityScore          int        `json:"qualityScore"`
	Intent                string     `json:"intent"`
	IsNew                 bool       `json:"isNew"`
}

type EngagementResponse struct {
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

type HistoryResponse struct {
	ID                  string    `json:"id"`
	FromStageID         *string   `json:"fromStageId"`
	FromStageName       *string   `json:"fromStageName"`
	ToStageID           *string   `json:"toStageId"`
	ToStageName         *string   `json:"toStageName"`
	ChangedBy           *string   `json:"changedBy"`
	Notes               *string   `json:"notes"`
	TimeInPreviousStage *int64    `json:"timeInPreviousStage"`
	CreatedAt           time.Time `json:"createdAt"`
}

type LeadDetailResponse struct {
	Lead           LeadResponse         `json:"lead"`
	ScoreBreakdown scoring.Breakdown    `json:"scoreBreakdown"`
	Engagements    []EngagementResponse `json:"engagements"`
	History        []HistoryResponse    `json:"history"`
}
