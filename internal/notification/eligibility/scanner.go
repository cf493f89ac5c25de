// Package eligibility notifies franchisors once a lead's FDD waiting period
// has elapsed.
package eligibility

import (
	"context"
	"fmt"
	"strings"
	"time"

	accesssvc "fddhub/internal/access/service"
	"fddhub/internal/email"
	"fddhub/internal/notification/inapp"
	"fddhub/internal/notification/recipients"
	"fddhub/platform/cache"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

const lockTTL = 2 * time.Minute

// Notifier persists in-app notifications.
type Notifier interface {
	Send(ctx context.Context, p inapp.CreateParams) (bool, error)
}

// Result summarizes one scan.
type Result struct {
	Checked  int
	Notified int
	Errors   []string
}

func (r Result) Message() string {
	return fmt.Sprintf("Checked %d leads, notified %d", r.Checked, r.Notified)
}

type Scanner struct {
	source    CandidateSource
	directory recipients.Directory
	notifier  Notifier
	sender    email.Sender
	locker    cache.Locker
	baseURL   string
	log       *logger.Logger
	now       func() time.Time
}

func NewScanner(source CandidateSource, directory recipients.Directory, notifier Notifier, sender email.Sender, locker cache.Locker, baseURL string, log *logger.Logger) *Scanner {
	return &Scanner{
		source:    source,
		directory: directory,
		notifier:  notifier,
		sender:    sender,
		locker:    locker,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// Scan notifies every recipient of every newly sales-eligible lead, optionally
// limited to one franchisor. A lead is notified at most once per recipient.
func (s *Scanner) Scan(ctx context.Context, franchisorID *uuid.UUID) (Result, error) {
	now := s.now()
	candidates, err := s.source.ListSignedBefore(ctx, now.Add(-accesssvc.WaitingPeriod), franchisorID)
	if err != nil {
		return Result{}, err
	}

	result := Result{Checked: len(candidates)}
	for _, c := range candidates {
		signedAt := c.ReceiptSignedAt
		if !accesssvc.IsSalesEligible(&signedAt, now) {
			continue
		}

		notified, err := s.notifyLead(ctx, c, now)
		if err != nil {
			s.log.SideEffectFailed("notification.sales_eligible", err, "invitationId", c.InvitationID)
			result.Errors = append(result.Errors, fmt.Sprintf("Lead %s: %v", c.InvitationID, err))
			continue
		}
		if notified {
			result.Notified++
		}
	}

	s.log.Info("sales eligibility scan finished", "checked", result.Checked, "notified", result.Notified, "errors", len(result.Errors))
	return result, nil
}

func (s *Scanner) notifyLead(ctx context.Context, c Candidate, now time.Time) (bool, error) {
	lockKey := c.InvitationID.String()
	acquired, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log.SideEffectFailed("notification.sales_eligible.unlock", err, "invitationId", c.InvitationID)
		}
	}()

	users, err := s.directory.Recipients(ctx, c.FranchisorID)
	if err != nil {
		return false, err
	}

	leadName := c.LeadName
	if leadName == "" {
		leadName = c.LeadEmail
	}
	franchiseName := c.FranchiseName
	if franchiseName == "" {
		franchiseName = "your franchise"
	}
	dedupeKey := c.InvitationID.String()
	franchisorID := c.FranchisorID
	message := fmt.Sprintf("The 14-day FTC disclosure period has passed for %s. They can now sign the %s franchise agreement.",
		leadName, franchiseName)

	notified := false
	for _, u := range users {
		created, err := s.notifier.Send(ctx, inapp.CreateParams{
			UserID:       u.UserID,
			FranchisorID: &franchisorID,
			Type:         inapp.TypeSalesEligible,
			Title:        leadName + " is Sales Eligible!",
			Message:      message,
			Data: map[string]any{
				"invitation_id":     c.InvitationID,
				"lead_name":         leadName,
				"lead_email":        c.LeadEmail,
				"franchise_id":      c.FranchiseID,
				"franchise_name":    franchiseName,
				"receipt_signed_at": c.ReceiptSignedAt,
				"days_since_signed": int(now.Sub(c.ReceiptSignedAt) / (24 * time.Hour)),
			},
			DedupeKey: &dedupeKey,
		})
		if err != nil {
			return notified, err
		}
		if !created {
			continue
		}
		notified = true

		if err := s.sender.SendSalesEligibleEmail(ctx, u.Email, email.SalesEligible{
			RecipientName: u.Name,
			LeadName:      leadName,
			FranchiseName: franchiseName,
			LeadURL:       s.baseURL + "/hub/leads/" + c.InvitationID.String(),
		}); err != nil {
			s.log.SideEffectFailed("notification.sales_eligible.email", err, "userId", u.UserID)
		}
	}
	return notified, nil
}
