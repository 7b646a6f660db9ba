package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfperusse/chainlit/internal/domain"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo := NewUserRepo(setupTestPool(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, "u1@example.com", "User One", "bcrypt-hash", []string{"user"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "u1@example.com", created.Email)
	assert.Equal(t, "User One", created.DisplayName)
	assert.Equal(t, []string{"user"}, created.Roles)
	assert.Equal(t, "bcrypt-hash", created.PasswordHash)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestUserRepo_GetMissing(t *testing.T) {
	repo := NewUserRepo(setupTestPool(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	repo := NewUserRepo(setupTestPool(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, "dup@example.com", "First", "hash", nil)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "dup@example.com", "Second", "hash", nil)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUserRepo_UpsertByEmail(t *testing.T) {
	repo := NewUserRepo(setupTestPool(t))
	ctx := context.Background()

	created, err := repo.UpsertByEmail(ctx, "sso@example.com", "SSO User", []string{"user"})
	require.NoError(t, err)
	assert.Empty(t, created.PasswordHash)

	updated, err := repo.UpsertByEmail(ctx, "sso@example.com", "Renamed", []string{"user", "admin"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "upsert must keep the identity stable")
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, []string{"user", "admin"}, updated.Roles)
}

func TestUserRepo_UpsertKeepsPasswordHash(t *testing.T) {
	repo := NewUserRepo(setupTestPool(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, "mixed@example.com", "Mixed", "keep-me", []string{"user"})
	require.NoError(t, err)

	updated, err := repo.UpsertByEmail(ctx, "mixed@example.com", "Mixed Updated", []string{"user"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "keep-me", updated.PasswordHash)
}
