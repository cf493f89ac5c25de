package repository

import (
	"time"

	"github.com/google/uuid"
)

// Invitation statuses.
const (
	StatusSent     = "sent"
	StatusViewed   = "viewed"
	StatusSignedUp = "signed_up"
	StatusExpired  = "expired"
)

// GrantedViaInvitation marks access grants created by the signup saga.
const GrantedViaInvitation = "invitation"

type Invitation struct {
	ID             uuid.UUID
	FranchisorID   uuid.UUID
	FranchiseID    uuid.UUID
	LeadEmail      string
	LeadName       string
	LeadPhone      *string
	Token          string
	Message        *string
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
	BuyerID        *uuid.UUID
	StageID        *uuid.UUID
	StageChangedAt *time.Time
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Used reports whether the token already produced an account.
func (i Invitation) Used() bool {
	return i.Status == StatusSignedUp || i.BuyerID != nil
}

type CreateParams struct {
	FranchisorID   uuid.UUID
	FranchiseID    uuid.UUID
	LeadEmail      string
	LeadName       string
	LeadPhone      *string
	Token          string
	Message        *string
	Source         string
	City           *string
	State          *string
	Timeline       *string
	TargetLocation *string
	SentAt         time.Time
	ExpiresAt      time.Time
	StageID        *uuid.UUID
	CreatedBy      uuid.UUID
}

// PublicView is what an invitee sees when opening the link.
type PublicView struct {
	Invitation
	FranchiseName     string
	FranchiseSlug     string
	FranchiseLogoURL  *string
	CompanyName       string
	FranchisorLogoURL *string
}

type BuyerProfileParams struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     *string
	City      *string
	State     *string
}

type GrantParams struct {
	BuyerID      uuid.UUID
	FranchiseID  uuid.UUID
	FranchisorID uuid.UUID
	InvitationID uuid.UUID
}
