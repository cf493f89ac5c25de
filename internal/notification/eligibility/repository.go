package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Candidate is an invited lead whose receipt was signed before the cutoff.
type Candidate struct {
	AccessID        uuid.UUID
	InvitationID    uuid.UUID
	FranchisorID    uuid.UUID
	FranchiseID     uuid.UUID
	FranchiseName   string
	LeadName        string
	LeadEmail       string
	ReceiptSignedAt time.Time
}

type CandidateSource interface {
	ListSignedBefore(ctx context.Context, cutoff time.Time, franchisorID *uuid.UUID) ([]Candidate, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ CandidateSource = (*Repository)(nil)

func (r *Repository) ListSignedBefore(ctx context.Context, cutoff time.Time, franchisorID *uuid.UUID) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, i.id, i.franchisor_id, i.franchise_id, f.name, i.lead_name, i.lead_email, a.receipt_signed_at
		FROM lead_fdd_access a
		JOIN lead_invitations i ON i.id = a.invitation_id
		JOIN franchises f ON f.id = i.franchise_id
		WHERE a.receipt_signed_at IS NOT NULL
			AND a.receipt_signed_at <= $1
			AND ($2::uuid IS NULL OR i.franchisor_id = $2)
		ORDER BY a.receipt_signed_at
	`, cutoff, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("notification.eligibility.list: %w", err)
	}
	defer rows.Close()

	items := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.AccessID, &c.InvitationID, &c.FranchisorID, &c.FranchiseID, &c.FranchiseName,
			&c.LeadName, &c.LeadEmail, &c.ReceiptSignedAt); err != nil {
			return nil, fmt.Errorf("notification.eligibility.list: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
