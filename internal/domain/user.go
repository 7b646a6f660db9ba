package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the authenticated principal. The record is treated as a whole:
// a session either holds a complete user or none at all, never a partial one.
type User struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Roles       []string
	// PasswordHash is empty for users provisioned via trusted-header auth.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, email, displayName, passwordHash string, roles []string) (*User, error)

	// UpsertByEmail provisions or refreshes a user identified by a trusted
	// upstream (header auth). Password hash is left untouched on update.
	UpsertByEmail(ctx context.Context, email, displayName string, roles []string) (*User, error)
}
