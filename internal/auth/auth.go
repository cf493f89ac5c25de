// Package auth provides authentication for franchisors, their team members
// and buyers. Other contexts create accounts through Accounts so the writes
// can join their transaction.
package auth

import (
	"context"

	"fddhub/internal/auth/repository"
	"fddhub/platform/db"

	"github.com/google/uuid"
)

// Accounts is the subset of the user store other bounded contexts may use.
type Accounts interface {
	CreateUser(ctx context.Context, q db.DBTX, email, passwordHash string, fullName *string, role string) (repository.User, error)
	GetUserByEmail(ctx context.Context, q db.DBTX, email string) (repository.User, error)
	UpsertRole(ctx context.Context, q db.DBTX, userID uuid.UUID, role string) error
}

var _ Accounts = (*repository.Repository)(nil)
