package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fddhub/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Member roles inside a franchisor. The profile owner is always "owner".
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleRecruiter = "recruiter"
	RoleViewer    = "viewer"
)

const msgFranchiseNotFound = "Franchise not found"

// Membership is how a user is attached to a franchisor.
type Membership struct {
	FranchisorID uuid.UUID
	Role         string
	MemberID     *uuid.UUID
}

type Profile struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	CompanyName string
	LogoURL     *string
	CreatedAt   time.Time
}

type Franchise struct {
	ID           uuid.UUID
	FranchisorID uuid.UUID
	Name         string
	Slug         string
	LogoURL      *string
	CreatedAt    time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveMembership looks for an owned profile first, then an active team seat.
func (r *Repository) ResolveMembership(ctx context.Context, userID uuid.UUID) (Membership, error) {
	var m Membership
	err := r.pool.QueryRow(ctx, `
    SELECT id FROM franchisor_profiles WHERE user_id = $1
  `, userID).Scan(&m.FranchisorID)
	if err == nil {
		m.Role = RoleOwner
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, fmt.Errorf("franchisors.repository.resolve_owner: %w", err)
	}

	var memberID uuid.UUID
	err = r.pool.QueryRow(ctx, `
    SELECT id, franchisor_id, role
    FROM franchisor_team_members
    WHERE user_id = $1 AND is_active = true AND accepted_at IS NOT NULL
    ORDER BY accepted_at
    LIMIT 1
  `, userID).Scan(&memberID, &m.FranchisorID, &m.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Membership{}, apperr.NotFound("membership not found")
	}
	if err != nil {
		return Membership{}, fmt.Errorf("franchisors.repository.resolve_member: %w", err)
	}
	m.MemberID = &memberID
	return m, nil
}

func (r *Repository) GetProfile(ctx context.Context, franchisorID uuid.UUID) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
    SELECT id, user_id, company_name, logo_url, created_at
    FROM franchisor_profiles
    WHERE id = $1
  `, franchisorID).Scan(&p.ID, &p.UserID, &p.CompanyName, &p.LogoURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, apperr.NotFound("Franchisor not found")
	}
	if err != nil {
		return Profile{}, fmt.Errorf("franchisors.repository.get_profile: %w", err)
	}
	return p, nil
}

// GetFranchise returns the franchise only when it belongs to franchisorID.
func (r *Repository) GetFranchise(ctx context.Context, franchisorID, franchiseID uuid.UUID) (Franchise, error) {
	var f Franchise
	err := r.pool.QueryRow(ctx, `
    SELECT id, franchisor_id, name, slug, logo_url, created_at
    FROM franchises
    WHERE id = $1 AND franchisor_id = $2
  `, franchiseID, franchisorID).Scan(&f.ID, &f.FranchisorID, &f.Name, &f.Slug, &f.LogoURL, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Franchise{}, apperr.NotFound(msgFranchiseNotFound)
	}
	if err != nil {
		return Franchise{}, fmt.Errorf("franchisors.repository.get_franchise: %w", err)
	}
	return f, nil
}

func (r *Repository) GetFranchiseByID(ctx context.Context, franchiseID uuid.UUID) (Franchise, error) {
	var f Franchise
	err := r.pool.QueryRow(ctx, `
    SELECT id, franchisor_id, name, slug, logo_url, created_at
    FROM franchises
    WHERE id = $1
  `, franchiseID).Scan(&f.ID, &f.FranchisorID, &f.Name, &f.Slug, &f.LogoURL, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Franchise{}, apperr.NotFound(msgFranchiseNotFound)
	}
	if err != nil {
		return Franchise{}, fmt.Errorf("franchisors.repository.get_franchise_by_id: %w", err)
	}
	return f, nil
}

func (r *Repository) ListFranchises(ctx context.Context, franchisorID uuid.UUID) ([]Franchise, error) {
	rows, err := r.pool.Query(ctx, `
    SELECT id, franchisor_id, name, slug, logo_url, created_at
    FROM franchises
    WHERE franchisor_id = $1
    ORDER BY name
  `, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("franchisors.repository.list_franchises: %w", err)
	}
	defer rows.Close()

	items := make([]Franchise, 0)
	for rows.Next() {
		var f Franchise
		if err := rows.Scan(&f.ID, &f.FranchisorID, &f.Name, &f.Slug, &f.LogoURL, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("franchisors.repository.list_franchises: %w", err)
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
