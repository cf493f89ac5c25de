package repository

import (
	"context"
	"time"

	"fddhub/platform/db"

	"github.com/google/uuid"
)

// User roles stored on the users row.
const (
	RoleBuyer      = "buyer"
	RoleFranchisor = "franchisor"
	RoleAdmin      = "admin"
)

// User is the persisted account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     *string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthRepository defines the interface for authentication data operations.
// The q-taking methods let other contexts run them inside their own transaction.
type AuthRepository interface {
	// User operations
	CreateUser(ctx context.Context, q db.DBTX, email, passwordHash string, fullName *string, role string) (User, error)
	GetUserByEmail(ctx context.Context, q db.DBTX, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	UpsertRole(ctx context.Context, q db.DBTX, userID uuid.UUID, role string) error

	// Refresh token operations
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// Ensure Repository implements AuthRepository
var _ AuthRepository = (*Repository)(nil)
