package repository

import (
	"time"

	"github.com/google/uuid"
)

// Lead is one invitation joined with everything the franchisor dashboard
// shows about it. Buyer, access and engagement fields stay nil until the
// invitee signs up and starts reading.
type Lead struct {
	ID             uuid.UUID
	FranchisorID   uuid.UUID
	FranchiseID    uuid.UUID
	FranchiseName  string
	FranchiseSlug  string
	LeadName       string
	LeadEmail      string
	LeadPhone      *string
	Source         string
	City           *string
	State          *string
	Timeline       *string
	TargetLocation *string
	Status         string
	SentAt         time.Time
	ViewedAt       *time.Time
	SignedUpAt     *time.Time
	ExpiresAt      time.Time
	StageID        *uuid.UUID
	StageName      *string
	StageColor     *string
	StageChangedAt *time.Time
	CreatedAt      time.Time

	Buyer      *Buyer
	Access     *Access
	Engagement *Engagement
}

type Buyer struct {
	ID        uuid.UUID
	FirstName *string
	LastName  *string
	Email     string
	Phone     *string
	City      *string
	State     *string
}

type Access struct {
	ID                    uuid.UUID
	Status                string
	GrantedVia            string
	TotalViews            int
	TotalTimeSpentSeconds int
	FirstViewedAt         *time.Time
	LastViewedAt          *time.Time
	ConsentGivenAt        *time.Time
	Item23SignedAt        *time.Time
	ReceiptSignedAt       *time.Time
	CreatedAt             time.Time
}

type Engagement struct {
	FranchiseID          uuid.UUID
	TimeSpent            int
	ViewedItems          []int
	QuestionsList        []string
	SectionsViewed       []string
	ViewedItem19         bool
	ViewedItem7          bool
	SpentSignificantTime bool
	LastActivity         time.Time
}

// ListParams filters the franchisor's lead list.
type ListParams struct {
	FranchisorID uuid.UUID
	FranchiseID  *uuid.UUID
	StageID      *uuid.UUID
}
