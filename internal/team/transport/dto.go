package transport

import "time"

type InviteRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Role     string `json:"role" validate:"required"`
}

type UpdateRequest struct {
	Role                  *string `json:"role"`
	IsActive              *bool   `json:"is_active"`
	ReceivesNotifications *bool   `json:"receives_notifications"`
}

type AcceptRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type MemberResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	FullName              string     `json:"full_name"`
	Role                  string     `json:"role"`
	IsActive              bool       `json:"is_active"`
	Status                string     `json:"status"`
	InvitedAt             time.Time  `json:"invited_at"`
	AcceptedAt            *time.Time `json:"accepted_at"`
	ReceivesNotifications bool       `json:"receives_notifications"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type ListResponse struct {
	TeamMembers  []MemberResponse `json:"team_members"`
	FranchisorID string           `json:"franchisor_id"`
}

type InviteResponse struct {
	Success        bool           `json:"success"`
	TeamMember     MemberResponse `json:"team_member"`
	Message        string         `json:"message"`
	InvitationSent bool           `json:"invitation_sent"`
}

type MemberUpdatedResponse struct {
	Success    bool           `json:"success"`
	TeamMember MemberResponse `json:"team_member"`
}

type MessageResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	InvitationSent bool   `json:"invitation_sent,omitempty"`
}

type InvitationSummary struct {
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	InvitedAt time.Time `json:"invited_at"`
}

type FranchisorSummary struct {
	ID          string  `json:"id,omitempty"`
	CompanyName string  `json:"company_name"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

type ResolveResponse struct {
	Valid           bool               `json:"valid"`
	Error           string             `json:"error,omitempty"`
	AlreadyAccepted bool               `json:"already_accepted,omitempty"`
	Invitation      *InvitationSummary `json:"invitation,omitempty"`
	Franchisor      *FranchisorSummary `json:"franchisor,omitempty"`
	InvitedBy       string             `json:"invited_by,omitempty"`
}

type AcceptedUser struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type AcceptResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Redirect   string            `json:"redirect"`
	User       AcceptedUser      `json:"user"`
	Franchisor FranchisorSummary `json:"franchisor"`
}
