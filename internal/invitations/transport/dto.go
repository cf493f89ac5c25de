package transport

import "time"

type CreateInvitationRequest struct {
	FranchiseID       string  `json:"franchise_id" validate:"required,uuid"`
	LeadEmail         string  `json:"lead_email" validate:"required,email,max=254"`
	FirstName         string  `json:"firstName" validate:"required,notblank,max=100"`
	LastName          string  `json:"lastName" validate:"required,notblank,max=100"`
	LeadPhone         *string `json:"lead_phone" validate:"omitempty,max=40"`
	InvitationMessage *string `json:"invitation_message" validate:"omitempty,max=5000"`
	Source            *string `json:"source" validate:"omitempty,max=100"`
	City              *string `json:"city" validate:"omitempty,max=100"`
	State             *string `json:"state" validate:"omitempty,max=100"`
	Timeline          *string `json:"timeline" validate:"omitempty,max=100"`
	TargetLocation    *string `json:"target_location" validate:"omitempty,max=200"`
}

type AcceptInvitationRequest struct {
	// Minimum length is enforced by the service after the token checks.
	Password string  `json:"password" validate:"required,max=72"`
	FullName *string `json:"fullName" validate:"omitempty,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=40"`
}

type InvitationResponse struct {
	ID                string     `json:"id"`
	FranchisorID      string     `json:"franchisor_id"`
	FranchiseID       string     `json:"franchise_id"`
	LeadEmail         string     `json:"lead_email"`
	LeadName          string     `json:"lead_name"`
	LeadPhone         *string    `json:"lead_phone"`
	InvitationToken   string     `json:"invitation_token"`
	InvitationMessage *string    `json:"invitation_message"`
	Source            string     `json:"source"`
	City              *string    `json:"city"`
	State             *string    `json:"state"`
	Timeline          *string    `json:"timeline"`
	TargetLocation    *string    `json:"target_location"`
	Status            string     `json:"status"`
	SentAt            time.Time  `json:"sent_at"`
	ViewedAt          *time.Time `json:"viewed_at"`
	SignedUpAt        *time.Time `json:"signed_up_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	BuyerID           *string    `json:"buyer_id"`
	StageID           *string    `json:"stage_id"`
	StageChangedAt    *time.Time `json:"stage_changed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

type CreateInvitationResponse struct {
	Invitation     InvitationResponse `json:"invitation"`
	InvitationLink string             `json:"invitation_link"`
}

type FranchiseSummary struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	LogoURL *string `json:"logo_url"`
}

type FranchisorSummary struct {
	CompanyName string  `json:"company_name"`
	LogoURL     *string `json:"logo_url"`
}

// PublicInvitation is the invitee-facing view; the token is not echoed back.
type PublicInvitation struct {
	ID                string            `json:"id"`
	LeadEmail         string            `json:"lead_email"`
	LeadName          string            `json:"lead_name"`
	InvitationMessage *string           `json:"invitation_message"`
	Status            string            `json:"status"`
	ExpiresAt         time.Time         `json:"expires_at"`
	Franchise         FranchiseSummary  `json:"franchise"`
	Franchisor        FranchisorSummary `json:"franchisor"`
}

type PublicInvitationResponse struct {
	Invitation PublicInvitation `json:"invitation"`
}

type AcceptInvitationResponse struct {
	Success     bool   `json:"success"`
	BuyerID     string `json:"buyer_id,omitempty"`
	FranchiseID string `json:"franchise_id,omitempty"`
	Error       string `json:"error,omitempty"`
	Step        int    `json:"step,omitempty"`
}
