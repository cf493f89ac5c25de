package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fddhub/platform/apperr"
	"fddhub/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	msgMemberNotFound = "Team member not found"
	msgMemberExists   = "A team member with this email already exists"
	msgInvalidToken   = "Invalid or expired invitation token"
)

const memberColumns = `
	m.id, m.franchisor_id, m.user_id, m.email, m.full_name, m.role, m.is_active,
	m.invited_at, m.accepted_at, m.invited_by, m.receives_notifications, m.created_at, m.updated_at`

// TeamRepository persists franchisor team seats. Methods taking a db.DBTX
// run inside the caller's transaction when q is non-nil.
type TeamRepository interface {
	List(ctx context.Context, franchisorID uuid.UUID) ([]Member, error)
	GetByID(ctx context.Context, franchisorID, id uuid.UUID) (Member, error)
	GetByEmail(ctx context.Context, franchisorID uuid.UUID, email string) (Member, error)
	Create(ctx context.Context, params CreateParams) (Member, error)
	Reinvite(ctx context.Context, id uuid.UUID, params CreateParams) (Member, error)
	RefreshToken(ctx context.Context, id uuid.UUID, tokenHash string, at time.Time) error
	Update(ctx context.Context, franchisorID, id uuid.UUID, params UpdateParams) (Member, error)
	CompanyName(ctx context.Context, franchisorID uuid.UUID) (string, error)
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
	GetInvite(ctx context.Context, tokenHash string) (Invite, error)

	WithTx(ctx context.Context, fn func(q db.DBTX) error) error
	LockByToken(ctx context.Context, q db.DBTX, tokenHash string) (Member, error)
	MarkAccepted(ctx context.Context, q db.DBTX, id, userID uuid.UUID, at time.Time) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ TeamRepository = (*Repository)(nil)

func (r *Repository) q(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanMember(row pgx.Row, extra ...any) (Member, error) {
	var m Member
	dest := []any{
		&m.ID, &m.FranchisorID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.IsActive,
		&m.InvitedAt, &m.AcceptedAt, &m.InvitedBy, &m.ReceivesNotifications, &m.CreatedAt, &m.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return m, err
}

func oneMember(row pgx.Row, op string) (Member, error) {
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, apperr.NotFound(msgMemberNotFound)
	}
	if err != nil {
		return Member{}, fmt.Errorf("team.repository.%s: %w", op, err)
	}
	return m, nil
}

// List orders the owner first, then by name.
func (r *Repository) List(ctx context.Context, franchisorID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM franchisor_team_members m
		WHERE m.franchisor_id = $1
		ORDER BY m.role = 'owner' DESC, m.full_name
	`, franchisorID)
	if err != nil {
		return nil, fmt.Errorf("team.repository.list: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("team.repository.list: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, franchisorID, id uuid.UUID) (Member, error) {
	return oneMember(r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM franchisor_team_members m
		WHERE m.id = $1 AND m.franchisor_id = $2
	`, id, franchisorID), "get")
}

func (r *Repository) GetByEmail(ctx context.Context, franchisorID uuid.UUID, email string) (Member, error) {
	return oneMember(r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM franchisor_team_members m
		WHERE m.franchisor_id = $1 AND lower(m.email) = lower($2)
	`, franchisorID, strings.TrimSpace(email)), "get_by_email")
}

// Create records the inviter's own seat as invited_by; profile owners
// without a seat leave it NULL.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Member, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO franchisor_team_members AS m
			(franchisor_id, email, full_name, role, is_active, invitation_token, invited_at, invited_by)
		VALUES ($1, $2, $3, $4, true, $5, $6,
			(SELECT id FROM franchisor_team_members WHERE franchisor_id = $1 AND user_id = $7))
		RETURNING `+memberColumns,
		p.FranchisorID, p.Email, p.FullName, p.Role, p.TokenHash, p.InvitedAt, p.InviterUserID)

	m, err := scanMember(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Member{}, apperr.Conflict(msgMemberExists)
		}
		return Member{}, fmt.Errorf("team.repository.create: %w", err)
	}
	return m, nil
}

// Reinvite reactivates a deactivated seat as a fresh pending invitation.
func (r *Repository) Reinvite(ctx context.Context, id uuid.UUID, p CreateParams) (Member, error) {
	return oneMember(r.pool.QueryRow(ctx, `
		UPDATE franchisor_team_members AS m SET
			is_active = true, role = $2, full_name = $3, invitation_token = $4,
			invited_at = $5, accepted_at = NULL, user_id = NULL,
			invited_by = (SELECT id FROM franchisor_team_members WHERE franchisor_id = m.franchisor_id AND user_id = $6),
			updated_at = now()
		WHERE m.id = $1
		RETURNING `+memberColumns,
		id, p.Role, p.FullName, p.TokenHash, p.InvitedAt, p.InviterUserID), "reinvite")
}

func (r *Repository) RefreshToken(ctx context.Context, id uuid.UUID, tokenHash string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE franchisor_team_members
		SET invitation_token = $2, invited_at = $3, updated_at = now()
		WHERE id = $1
	`, id, tokenHash, at)
	if err != nil {
		return fmt.Errorf("team.repository.refresh_token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgMemberNotFound)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, franchisorID, id uuid.UUID, p UpdateParams) (Member, error) {
	return oneMember(r.pool.QueryRow(ctx, `
		UPDATE franchisor_team_members AS m SET
			role = COALESCE($3, role),
			is_active = COALESCE($4, is_active),
			receives_notifications = COALESCE($5, receives_notifications),
			updated_at = now()
		WHERE m.id = $1 AND m.franchisor_id = $2
		RETURNING `+memberColumns,
		id, franchisorID, p.Role, p.IsActive, p.ReceivesNotifications), "update")
}

func (r *Repository) CompanyName(ctx context.Context, franchisorID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT company_name FROM franchisor_profiles WHERE id = $1`, franchisorID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("Franchisor not found")
	}
	if err != nil {
		return "", fmt.Errorf("team.repository.company_name: %w", err)
	}
	return name, nil
}

func (r *Repository) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(full_name, email) FROM users WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("team.repository.display_name: %w", err)
	}
	return name, nil
}

// GetInvite resolves a pending token with the franchisor branding and the
// owner's name for the public accept page.
func (r *Repository) GetInvite(ctx context.Context, tokenHash string) (Invite, error) {
	var inv Invite
	m, err := scanMember(r.pool.QueryRow(ctx, `
		SELECT `+memberColumns+`, p.company_name, p.logo_url, COALESCE(owner.full_name, owner.email)
		FROM franchisor_team_members m
		JOIN franchisor_profiles p ON p.id = m.franchisor_id
		JOIN users owner ON owner.id = p.user_id
		WHERE m.invitation_token = $1
	`, tokenHash), &inv.CompanyName, &inv.LogoURL, &inv.InvitedByName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, apperr.NotFound(msgInvalidToken)
	}
	if err != nil {
		return Invite{}, fmt.Errorf("team.repository.get_invite: %w", err)
	}
	inv.Member = m
	return inv, nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(q db.DBTX) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// LockByToken reads the seat with a row lock so concurrent accepts serialize.
func (r *Repository) LockByToken(ctx context.Context, q db.DBTX, tokenHash string) (Member, error) {
	m, err := scanMember(r.q(q).QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM franchisor_team_members m
		WHERE m.invitation_token = $1
		FOR UPDATE
	`, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, apperr.NotFound(msgInvalidToken)
	}
	if err != nil {
		return Member{}, fmt.Errorf("team.repository.lock_by_token: %w", err)
	}
	return m, nil
}

// MarkAccepted links the user and clears the token so it cannot be reused.
func (r *Repository) MarkAccepted(ctx context.Context, q db.DBTX, id, userID uuid.UUID, at time.Time) error {
	tag, err := r.q(q).Exec(ctx, `
		UPDATE franchisor_team_members
		SET user_id = $2, accepted_at = $3, invitation_token = NULL, updated_at = now()
		WHERE id = $1
	`, id, userID, at)
	if err != nil {
		return fmt.Errorf("team.repository.mark_accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgMemberNotFound)
	}
	return nil
}
