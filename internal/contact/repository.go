package contact

import (
	"context"
	"errors"
	"fmt"

	"fddhub/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const msgLeadNotFound = "Lead not found"

// SenderProfile is how an outgoing message is signed.
type SenderProfile struct {
	CompanyName string
	Name        string
	Email       string
}

// LogEntry is one row of lead_contact_log.
type LogEntry struct {
	InvitationID   uuid.UUID
	SenderUserID   uuid.UUID
	SenderName     string
	SenderEmail    string
	Subject        string
	Message        string
	RecipientEmail string
	RecipientName  string
}

type Store interface {
	SenderProfile(ctx context.Context, franchisorID, userID uuid.UUID) (SenderProfile, error)
	LeadBelongsTo(ctx context.Context, franchisorID, leadID uuid.UUID) error
	LogContact(ctx context.Context, entry LogEntry) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SenderProfile prefers the caller's team seat name over the account name.
func (r *Repository) SenderProfile(ctx context.Context, franchisorID, userID uuid.UUID) (SenderProfile, error) {
	var p SenderProfile
	err := r.pool.QueryRow(ctx, `
		SELECT p.company_name, COALESCE(NULLIF(m.full_name, ''), u.full_name, ''), u.email
		FROM franchisor_profiles p
		JOIN users u ON u.id = $2
		LEFT JOIN franchisor_team_members m
			ON m.franchisor_id = p.id AND m.user_id = u.id AND m.is_active
		WHERE p.id = $1
	`, franchisorID, userID).Scan(&p.CompanyName, &p.Name, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return SenderProfile{}, apperr.Forbidden("No franchisor profile found")
	}
	if err != nil {
		return SenderProfile{}, fmt.Errorf("contact.repository.sender_profile: %w", err)
	}
	return p, nil
}

func (r *Repository) LeadBelongsTo(ctx context.Context, franchisorID, leadID uuid.UUID) error {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT franchisor_id = $2 FROM lead_invitations WHERE id = $1
	`, leadID, franchisorID).Scan(&ok)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return fmt.Errorf("contact.repository.lead_belongs_to: %w", err)
	}
	if !ok {
		return apperr.Forbidden("Lead does not belong to your organization")
	}
	return nil
}

func (r *Repository) LogContact(ctx context.Context, e LogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_contact_log
			(invitation_id, sender_user_id, sender_name, sender_email, subject, message, recipient_email, recipient_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.InvitationID, e.SenderUserID, e.SenderName, e.SenderEmail, e.Subject, e.Message, e.RecipientEmail, e.RecipientName)
	if err != nil {
		return fmt.Errorf("contact.repository.log_contact: %w", err)
	}
	return nil
}
