package repository

import (
	"time"

	"github.com/google/uuid"
)

// Seat roles. The owner seat is never created through invitations.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleRecruiter = "recruiter"
	RoleViewer    = "viewer"
)

// Derived seat statuses.
const (
	StatusActive      = "active"
	StatusPending     = "pending"
	StatusDeactivated = "deactivated"
)

type Member struct {
	ID                    uuid.UUID
	FranchisorID          uuid.UUID
	UserID                *uuid.UUID
	Email                 string
	FullName              string
	Role                  string
	IsActive              bool
	InvitedAt             time.Time
	AcceptedAt            *time.Time
	InvitedBy             *uuid.UUID
	ReceivesNotifications bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (m Member) Status() string {
	switch {
	case !m.IsActive:
		return StatusDeactivated
	case m.AcceptedAt == nil:
		return StatusPending
	default:
		return StatusActive
	}
}

// Accepted reports whether the seat is already linked to an account.
func (m Member) Accepted() bool {
	return m.AcceptedAt != nil || m.UserID != nil
}

// Invite is a pending seat as shown on the public accept page.
type Invite struct {
	Member
	CompanyName   string
	LogoURL       *string
	InvitedByName string
}

type CreateParams struct {
	FranchisorID  uuid.UUID
	Email         string
	FullName      string
	Role          string
	TokenHash     string
	InvitedAt     time.Time
	InviterUserID uuid.UUID
}

// UpdateParams leaves nil fields unchanged.
type UpdateParams struct {
	Role                  *string
	IsActive              *bool
	ReceivesNotifications *bool
}
