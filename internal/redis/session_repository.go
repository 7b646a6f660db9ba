package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jfperusse/chainlit/internal/domain"
)

const (
	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
)

// Key schema:
//   auth_session:{token}    hash: user_id, created_at; expires with the session TTL
//   user_sessions:{userID}  set of live tokens for revocation

func sessionKey(token string) string {
	return "auth_session:" + token
}

func userSessionsKey(userID uuid.UUID) string {
	return "user_sessions:" + userID.String()
}

// SessionRepo implements domain.SessionRepository backed by Redis.
type SessionRepo struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewSessionRepo(client *Client, clock clockwork.Clock) *SessionRepo {
	return &SessionRepo{rdb: client.rdb, clock: clock}
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *SessionRepo) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*domain.ServerSession, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	key := sessionKey(token)

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldUserID:    userID.String(),
		fieldCreatedAt: strconv.FormatInt(now.UnixMilli(), 10),
	})
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &domain.ServerSession{Token: token, UserID: userID, CreatedAt: now}, nil
}

func (s *SessionRepo) Get(ctx context.Context, token string, ttl time.Duration) (*domain.ServerSession, error) {
	key := sessionKey(token)

	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(result) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	userID, err := uuid.Parse(result[fieldUserID])
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", token, err)
	}

	createdMs, err := strconv.ParseInt(result[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", token, err)
	}

	// Sliding expiration: each authenticated request pushes the TTL forward.
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to refresh session TTL: %w", err)
	}

	return &domain.ServerSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.UnixMilli(createdMs),
	}, nil
}

func (s *SessionRepo) Delete(ctx context.Context, token string) error {
	key := sessionKey(token)

	userIDStr, err := s.rdb.HGet(ctx, key, fieldUserID).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to load session for deletion: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	if userID, parseErr := uuid.Parse(userIDStr); parseErr == nil {
		pipe.SRem(ctx, userSessionsKey(userID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	setKey := userSessionsKey(userID)

	tokens, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	pipe := s.rdb.Pipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKey(token))
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}
