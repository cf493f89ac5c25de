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
	opCreateUser     = "auth.repository.create_user"
	opUpsertRole     = "auth.repository.upsert_role"
	msgUserNotFound  = "user not found"
	msgEmailTaken    = "an account with this email already exists"
	msgTokenNotFound = "refresh token not found"
)

const userColumns = `id, email, password_hash, full_name, role, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for callers that start their own transaction.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) q(q db.DBTX) db.DBTX {
	if q == nil {
		return r.pool
	}
	return q
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *Repository) CreateUser(ctx context.Context, q db.DBTX, email, passwordHash string, fullName *string, role string) (User, error) {
	row := r.q(q).QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, fullName, role)

	user, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict(msgEmailTaken).WithOp(opCreateUser)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, q db.DBTX, email string) (User, error) {
	row := r.q(q).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// UpsertRole sets the account role. An admin keeps its role.
func (r *Repository) UpsertRole(ctx context.Context, q db.DBTX, userID uuid.UUID, role string) error {
	tag, err := r.q(q).Exec(ctx, `
		UPDATE users SET role = CASE WHEN role = 'admin' THEN role ELSE $2 END, updated_at = now()
		WHERE id = $1
	`, userID, role)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgUserNotFound).WithOp(opUpsertRole)
	}
	return nil
}

func (r *Repository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *Repository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, expires_at FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, time.Time{}, apperr.NotFound(msgTokenNotFound)
	}
	if err != nil {
		return uuid.UUID{}, time.Time{}, fmt.Errorf("get refresh token: %w", err)
	}
	return userID, expiresAt, nil
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
