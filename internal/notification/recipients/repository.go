// Package recipients resolves who at a franchisor is told about lead activity.
package recipients

import (
	"context"
	"errors"
	"fmt"

	"fddhub/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recipient is a user that receives franchisor notifications.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// LeadContext names a buyer's lead for one franchise.
type LeadContext struct {
	FranchisorID  uuid.UUID
	FranchiseID   uuid.UUID
	FranchiseName string
	LeadID        *uuid.UUID
	LeadName      string
	LeadEmail     string
}

type Directory interface {
	// Recipients returns the profile owner first, then active team members
	// that opted into notifications.
	Recipients(ctx context.Context, franchisorID uuid.UUID) ([]Recipient, error)
	LeadContext(ctx context.Context, buyerID, franchiseID uuid.UUID) (LeadContext, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Directory = (*Repository)(nil)

func (r *Repository) Recipients(ctx context.Context, franchisorID uuid.UUID) ([]Recipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, COALESCE(u.full_name, p.company_name), 0 AS rank
		FROM franchisor_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
		UNION ALL
		SELECT u.id, u.email, m.full_name, 1
		FROM franchisor_team_members m
		JOIN users u ON u.id = m.user_id
		JOIN franchisor_profiles p ON p.id = m.franchisor_id
		WHERE m.franchisor_id = $1 AND m.is_active AND m.receives_notifications AND m.user_id <> p.user_id
		ORDER BY 4, 3
	`, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("notification.recipients.list: %w", err)
	}
	defer rows.Close()

	items := make([]Recipient, 0)
	for rows.Next() {
		var rc Recipient
		var rank int
		if err := rows.Scan(&rc.UserID, &rc.Email, &rc.Name, &rank); err != nil {
			return nil, fmt.Errorf("notification.recipients.list: %w", err)
		}
		items = append(items, rc)
	}
	return items, rows.Err()
}

// LeadContext prefers the invitation's lead name, falling back to the buyer
// profile for buyers that signed up on their own.
func (r *Repository) LeadContext(ctx context.Context, buyerID, franchiseID uuid.UUID) (LeadContext, error) {
	var lc LeadContext
	err := r.pool.QueryRow(ctx, `
		SELECT f.franchisor_id, f.id, f.name, i.id,
			COALESCE(NULLIF(TRIM(COALESCE(b.first_name, '') || ' ' || COALESCE(b.last_name, '')), ''), i.lead_name, b.email),
			b.email
		FROM franchises f
		JOIN buyer_profiles b ON b.id = $1
		LEFT JOIN LATERAL (
			SELECT id, lead_name FROM lead_invitations
			WHERE buyer_id = b.id AND franchise_id = f.id
			ORDER BY created_at DESC LIMIT 1
		) i ON true
		WHERE f.id = $2
	`, buyerID, franchiseID).Scan(&lc.FranchisorID, &lc.FranchiseID, &lc.FranchiseName, &lc.LeadID, &lc.LeadName, &lc.LeadEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadContext{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return LeadContext{}, fmt.Errorf("notification.recipients.lead_context: %w", err)
	}
	return lc, nil
}
