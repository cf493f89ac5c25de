package contact

import (
	"context"
	"strings"

	"fddhub/internal/email"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"
	"fddhub/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgMissingFields  = "Missing required fields: to, leadName, subject, message"
	msgSendFailed     = "Failed to send email"
	defaultCompany    = "Your Franchise"
	defaultSenderName = "Your Franchise Team"
)

// Caller is the franchisor user sending the message.
type Caller struct {
	UserID       uuid.UUID
	FranchisorID uuid.UUID
}

type Message struct {
	LeadID   *uuid.UUID
	To       string
	LeadName string
	Subject  string
	Body     string
}

type Service struct {
	store  Store
	sender email.Sender
	log    *logger.Logger
}

func NewService(store Store, sender email.Sender, log *logger.Logger) *Service {
	return &Service{store: store, sender: sender, log: log}
}

// Send emails a lead on behalf of the caller's franchisor. When the message
// is tied to a lead it is also written to the contact log; a failed log
// write does not fail the send.
func (s *Service) Send(ctx context.Context, caller Caller, msg Message) error {
	msg.To = sanitize.Email(msg.To)
	msg.LeadName = strings.TrimSpace(msg.LeadName)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)
	if msg.To == "" || msg.LeadName == "" || msg.Subject == "" || msg.Body == "" {
		return apperr.BadRequest(msgMissingFields)
	}

	if msg.LeadID != nil {
		if err := s.store.LeadBelongsTo(ctx, caller.FranchisorID, *msg.LeadID); err != nil {
			return err
		}
	}

	profile, err := s.store.SenderProfile(ctx, caller.FranchisorID, caller.UserID)
	if err != nil {
		return err
	}
	company := orDefault(profile.CompanyName, defaultCompany)
	senderName := orDefault(profile.Name, defaultSenderName)

	err = s.sender.SendLeadContactEmail(ctx, msg.To, email.LeadContact{
		LeadName:    msg.LeadName,
		CompanyName: company,
		SenderName:  senderName,
		SenderEmail: profile.Email,
		Subject:     msg.Subject,
		Message:     msg.Body,
	})
	if err != nil {
		return apperr.Upstream(msgSendFailed, err)
	}

	if msg.LeadID != nil {
		entry := LogEntry{
			InvitationID:   *msg.LeadID,
			SenderUserID:   caller.UserID,
			SenderName:     senderName,
			SenderEmail:    profile.Email,
			Subject:        msg.Subject,
			Message:        msg.Body,
			RecipientEmail: msg.To,
			RecipientName:  msg.LeadName,
		}
		if err := s.store.LogContact(ctx, entry); err != nil {
			s.log.WithContext(ctx).SideEffectFailed("contact.log", err, "leadId", *msg.LeadID)
		}
	}

	s.log.Info("lead contacted", "leadId", msg.LeadID, "franchisorId", caller.FranchisorID, "sender", senderName)
	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
