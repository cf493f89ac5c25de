package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fddhub/platform/apperr"
	"fddhub/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	msgInvitationNotFound = "Invitation not found"
	msgAccessExists       = "FDD access already granted for this franchise"
	msgProfileExists      = "buyer profile already exists"
)

const invitationColumns = `
	i.id, i.franchisor_id, i.franchise_id, i.lead_email, i.lead_name, i.lead_phone,
	i.invitation_token, i.invitation_message, i.source, i.city, i.state, i.timeline,
	i.target_location, i.status, i.sent_at, i.viewed_at, i.signed_up_at, i.expires_at,
	i.buyer_id, i.stage_id, i.stage_changed_at, i.created_by, i.created_at, i.updated_at`

// InvitationRepository is the persistence surface of the invitations context.
// Methods taking a db.DBTX run inside the caller's transaction when q is non-nil.
type InvitationRepository interface {
	Create(ctx context.Context, params CreateParams) (Invitation, error)
	List(ctx context.Context, franchisorID uuid.UUID) ([]Invitation, error)
	GetByID(ctx context.Context, franchisorID, id uuid.UUID) (Invitation, error)
	GetPublicView(ctx context.Context, token string) (PublicView, error)
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	WithTx(ctx context.Context, fn func(q db.DBTX) error) error
	LockByToken(ctx context.Context, q db.DBTX, token string) (Invitation, error)
	CreateBuyerProfile(ctx context.Context, q db.DBTX, params BuyerProfileParams) (uuid.UUID, error)
	GrantAccess(ctx context.Context, q db.DBTX, params GrantParams) error
	MarkSignedUp(ctx context.Context, q db.DBTX, id, buyerID uuid.UUID, at time.Time) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ InvitationRepository = (*Repository)(nil)

func (r *Repository) q(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanInvitation(row pgx.Row, extra ...any) (Invitation, error) {
	var i Invitation
	dest := []any{
		&i.ID, &i.FranchisorID, &i.FranchiseID, &i.LeadEmail, &i.LeadName, &i.LeadPhone,
		&i.Token, &i.Message, &i.Source, &i.City, &i.State, &i.Timeline,
		&i.TargetLocation, &i.Status, &i.SentAt, &i.ViewedAt, &i.SignedUpAt, &i.ExpiresAt,
		&i.BuyerID, &i.StageID, &i.StageChangedAt, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Invitation, error) {
	var stageChangedAt *time.Time
	if p.StageID != nil {
		stageChangedAt = &p.SentAt
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO lead_invitations AS i (
			franchisor_id, franchise_id, lead_email, lead_name, lead_phone, invitation_token,
			invitation_message, source, city, state, timeline, target_location,
			status, sent_at, expires_at, stage_id, stage_changed_at, stage_changed_by, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'sent', $13, $14, $15, $16, $17, $17)
		RETURNING `+invitationColumns,
		p.FranchisorID, p.FranchiseID, p.LeadEmail, p.LeadName, p.LeadPhone, p.Token,
		p.Message, p.Source, p.City, p.State, p.Timeline, p.TargetLocation,
		p.SentAt, p.ExpiresAt, p.StageID, stageChangedAt, p.CreatedBy)

	inv, err := scanInvitation(row)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Invitation{}, apperr.Validation("franchise or stage does not exist")
		}
		return Invitation{}, fmt.Errorf("invitations.repository.create: %w", err)
	}
	return inv, nil
}

func (r *Repository) List(ctx context.Context, franchisorID uuid.UUID) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM lead_invitations i
		WHERE i.franchisor_id = $1
		ORDER BY i.created_at DESC
	`, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("invitations.repository.list: %w", err)
	}
	defer rows.Close()

	items := make([]Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("invitations.repository.list: %w", err)
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, franchisorID, id uuid.UUID) (Invitation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM lead_invitations i
		WHERE i.id = $1 AND i.franchisor_id = $2
	`, id, franchisorID)
	inv, err := scanInvitation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, apperr.NotFound(msgInvitationNotFound)
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("invitations.repository.get_by_id: %w", err)
	}
	return inv, nil
}

func (r *Repository) GetPublicView(ctx context.Context, token string) (PublicView, error) {
	var v PublicView
	row := r.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+`,
			f.name, f.slug, f.logo_url, fp.company_name, fp.logo_url
		FROM lead_invitations i
		JOIN franchises f ON f.id = i.franchise_id
		JOIN franchisor_profiles fp ON fp.id = i.franchisor_id
		WHERE i.invitation_token = $1
	`, token)
	inv, err := scanInvitation(row, &v.FranchiseName, &v.FranchiseSlug, &v.FranchiseLogoURL, &v.CompanyName, &v.FranchisorLogoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return PublicView{}, apperr.NotFound(msgInvitationNotFound)
	}
	if err != nil {
		return PublicView{}, fmt.Errorf("invitations.repository.get_public_view: %w", err)
	}
	v.Invitation = inv
	return v, nil
}

// MarkViewed only moves a sent invitation; later views leave viewed_at alone.
func (r *Repository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_invitations
		SET status = 'viewed', viewed_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'sent'
	`, id, at)
	if err != nil {
		return fmt.Errorf("invitations.repository.mark_viewed: %w", err)
	}
	return nil
}

func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_invitations
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status IN ('sent', 'viewed')
	`, id)
	if err != nil {
		return fmt.Errorf("invitations.repository.mark_expired: %w", err)
	}
	return nil
}

// ExpireOverdue flips every open invitation past its window and returns how many moved.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_invitations
		SET status = 'expired', updated_at = now()
		WHERE status IN ('sent', 'viewed') AND expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("invitations.repository.expire_overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// LockByToken reads the invitation with a row lock so concurrent accepts of
// the same token serialize.
func (r *Repository) LockByToken(ctx context.Context, q db.DBTX, token string) (Invitation, error) {
	row := r.q(q).QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM lead_invitations i
		WHERE i.invitation_token = $1
		FOR UPDATE
	`, token)
	inv, err := scanInvitation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, apperr.NotFound(msgInvitationNotFound)
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("invitations.repository.lock_by_token: %w", err)
	}
	return inv, nil
}

func (r *Repository) CreateBuyerProfile(ctx context.Context, q db.DBTX, p BuyerProfileParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.q(q).QueryRow(ctx, `
		INSERT INTO buyer_profiles (user_id, email, first_name, last_name, phone, city, state, signup_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'fddhub')
		RETURNING id
	`, p.UserID, p.Email, p.FirstName, p.LastName, p.Phone, p.City, p.State).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return uuid.Nil, apperr.Conflict(msgProfileExists)
		}
		return uuid.Nil, fmt.Errorf("invitations.repository.create_buyer_profile: %w", err)
	}
	return id, nil
}

func (r *Repository) GrantAccess(ctx context.Context, q db.DBTX, p GrantParams) error {
	_, err := r.q(q).Exec(ctx, `
		INSERT INTO lead_fdd_access (
			buyer_id, franchise_id, franchisor_id, invitation_id, granted_via,
			total_views, total_time_spent_seconds
		)
		VALUES ($1, $2, $3, $4, $5, 0, 0)
	`, p.BuyerID, p.FranchiseID, p.FranchisorID, p.InvitationID, GrantedViaInvitation)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict(msgAccessExists)
		}
		return fmt.Errorf("invitations.repository.grant_access: %w", err)
	}
	return nil
}

func (r *Repository) MarkSignedUp(ctx context.Context, q db.DBTX, id, buyerID uuid.UUID, at time.Time) error {
	tag, err := r.q(q).Exec(ctx, `
		UPDATE lead_invitations
		SET status = 'signed_up', buyer_id = $2, signed_up_at = $3, updated_at = now()
		WHERE id = $1
	`, id, buyerID, at)
	if err != nil {
		return fmt.Errorf("invitations.repository.mark_signed_up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgInvitationNotFound)
	}
	return nil
}
