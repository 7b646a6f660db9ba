package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthState is the observable state of the client-side session cell.
//
// The cell starts Unknown and only terminal fetch outcomes move it:
// a successful who-am-I read yields Authenticated, any failure yields
// Unauthenticated. An in-flight read never changes the state.
type AuthState int

const (
	// StateUnknown means no who-am-I read has completed yet.
	StateUnknown AuthState = iota
	// StateAuthenticated means the last completed read returned a user.
	StateAuthenticated
	// StateUnauthenticated means the last completed read failed or returned no user.
	StateUnauthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// ServerSession is a server-side session: an opaque token mapped to a user.
type ServerSession struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
}

// SessionRepository stores server-side sessions keyed by opaque token.
type SessionRepository interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*ServerSession, error)
	// Get resolves a token to its session and slides the TTL forward.
	Get(ctx context.Context, token string, ttl time.Duration) (*ServerSession, error)
	Delete(ctx context.Context, token string) error
	// DeleteAllForUser revokes every session of the given user.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}
