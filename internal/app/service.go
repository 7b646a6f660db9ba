package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jfperusse/chainlit/internal/domain"
	"github.com/jfperusse/chainlit/internal/metrics"
)

const minPasswordLength = 8

// dummyHash keeps login timing comparable for unknown and known users.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service is the application layer. It orchestrates the auth use cases
// on top of the user and session repositories.
type Service struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	sessionTTL time.Duration
}

func NewService(users domain.UserRepository, sessions domain.SessionRepository, sessionTTL time.Duration) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// Login verifies the password and issues a server-side session.
// Returns domain.ErrInvalidCredentials for unknown users, wrong passwords,
// and users without a password (provisioned via trusted-header auth).
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, *domain.ServerSession, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Burn the same bcrypt cost as a real comparison
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	metrics.ServerSessionsCreated.Inc()
	slog.Info("User logged in", "user_id", user.ID)
	return user, sess, nil
}

// Logout revokes the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	metrics.ServerSessionsRevoked.Inc()
	return nil
}

// CurrentUser resolves a session token to its user, sliding the session
// TTL forward. Returns domain.ErrUnauthorized when the token is unknown,
// expired, or references a deleted user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	sess, err := s.sessions.Get(ctx, token, s.sessionTTL)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Stale session for a deleted user; drop it.
		if delErr := s.sessions.Delete(ctx, token); delErr != nil {
			slog.Warn("Failed to drop stale session", "error", delErr)
		}
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return user, nil
}

// ResolveTrustedHeader provisions or refreshes the user named by a trusted
// proxy header. No session is issued; header requests authenticate per call.
func (s *Service) ResolveTrustedHeader(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrUnauthorized
	}

	displayName, _, _ := strings.Cut(email, "@")
	user, err := s.users.UpsertByEmail(ctx, email, displayName, []string{"user"})
	if err != nil {
		return nil, fmt.Errorf("failed to provision header-auth user: %w", err)
	}
	return user, nil
}

// Register creates a password-auth user. Used by the provisioning CLI.
func (s *Service) Register(ctx context.Context, email, displayName, password string, roles []string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.Create(ctx, email, displayName, string(hash), roles)
}

// RevokeAllSessions logs the user out everywhere.
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	metrics.ServerSessionsRevoked.Inc()
	return nil
}
