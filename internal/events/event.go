// Package events defines the FDDHub domain events. The bus itself lives in
// platform/events; its types are aliased here so modules import one package.
package events

import (
	"time"

	"fddhub/platform/events"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Invitation Domain Events
// =============================================================================

// InvitationSent is published after a franchisor creates a lead invitation.
type InvitationSent struct {
	BaseEvent
	InvitationID   uuid.UUID `json:"invitationId"`
	FranchisorID   uuid.UUID `json:"franchisorId"`
	FranchiseID    uuid.UUID `json:"franchiseId"`
	FranchiseName  string    `json:"franchiseName"`
	CompanyName    string    `json:"companyName"`
	LeadEmail      string    `json:"leadEmail"`
	LeadName       string    `json:"leadName"`
	Message        string    `json:"message,omitempty"`
	InvitationLink string    `json:"invitationLink"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (e InvitationSent) EventName() string { return "invitations.sent" }

// InvitationAccepted is published once the signup saga commits.
type InvitationAccepted struct {
	BaseEvent
	InvitationID uuid.UUID `json:"invitationId"`
	FranchisorID uuid.UUID `json:"franchisorId"`
	FranchiseID  uuid.UUID `json:"franchiseId"`
	BuyerID      uuid.UUID `json:"buyerId"`
	LeadName     string    `json:"leadName"`
}

func (e InvitationAccepted) EventName() string { return "invitations.accepted" }

// =============================================================================
// Lead / Pipeline Domain Events
// =============================================================================

// LeadStageChanged is published when a lead moves to a different pipeline stage.
type LeadStageChanged struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	FranchisorID uuid.UUID  `json:"franchisorId"`
	FromStageID  *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID    uuid.UUID  `json:"toStageId"`
	ToStageName  string     `json:"toStageName"`
	ChangedBy    uuid.UUID  `json:"changedBy"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage_changed" }

// =============================================================================
// Engagement / Access Domain Events
// =============================================================================

// HighEngagementReached is published when a buyer's merged engagement first
// crosses one of the hot-lead thresholds for a franchise.
type HighEngagementReached struct {
	BaseEvent
	BuyerID       uuid.UUID `json:"buyerId"`
	FranchiseID   uuid.UUID `json:"franchiseId"`
	TimeSpent     int       `json:"timeSpent"`
	ViewedItems   int       `json:"viewedItems"`
	QuestionCount int       `json:"questionCount"`
}

func (e HighEngagementReached) EventName() string { return "engagement.high_engagement" }

// ReceiptSigned is published when the Item 23 receipt is recorded for an access grant.
type ReceiptSigned struct {
	BaseEvent
	AccessID     uuid.UUID `json:"accessId"`
	BuyerID      uuid.UUID `json:"buyerId"`
	FranchiseID  uuid.UUID `json:"franchiseId"`
	FranchisorID uuid.UUID `json:"franchisorId"`
	SignedAt     time.Time `json:"signedAt"`
}

func (e ReceiptSigned) EventName() string { return "access.receipt_signed" }

// =============================================================================
// Team Domain Events
// =============================================================================

// TeamMemberInvited is published when a team member is invited or reactivated.
type TeamMemberInvited struct {
	BaseEvent
	MemberID    uuid.UUID `json:"memberId"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Role        string    `json:"role"`
	CompanyName string    `json:"companyName"`
	InvitedBy   string    `json:"invitedBy"`
	AcceptLink  string    `json:"acceptLink"`
}

func (e TeamMemberInvited) EventName() string { return "team.member_invited" }
