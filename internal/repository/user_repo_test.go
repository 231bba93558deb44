package repository

import (
	"context"
	"errors"
	"testing"

	"salescrm/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepo_FindByIdentifierIgnoresCase(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", Email: "Alice@Example.com", PasswordHash: "h"}))

	for _, id := range []string{"alice", "ALICE", "alice@example.com", "ALICE@EXAMPLE.COM"} {
		u, err := repo.FindByIdentifier(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, "alice", u.Username)
	}

	_, err := repo.FindByIdentifier(ctx, "bob")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepo_ExistsByUsernameOrEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "someone", "ALICE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "Alice", "other@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "bob", "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepo_CreateDuplicateUsernameFails(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"}))

	err := repo.Create(ctx, &model.User{Username: "alice", Email: "b@example.com", PasswordHash: "h"})
	assert.Error(t, err)
}

func TestUserRepo_UniqueIgnoresCase(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "h"}))

	// Bypasses the existence check, as two racing registrations would.
	err := repo.Create(ctx, &model.User{Username: "ALICE", Email: "other@example.com", PasswordHash: "h"})
	assert.Error(t, err)
	err = repo.Create(ctx, &model.User{Username: "alice2", Email: "Alice@EXAMPLE.com", PasswordHash: "h"})
	assert.Error(t, err)

	u, err := repo.FindByIdentifier(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UsernameKey)
	assert.Equal(t, "alice@example.com", u.EmailKey)
}

func TestUserRepo_DeleteAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	entries := NewCRMEntryRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{Username: "u1", Email: "u1@x.com", PasswordHash: "h"}))
	require.NoError(t, repo.Create(ctx, &model.User{Username: "u2", Email: "u2@x.com", PasswordHash: "h"}))
	require.NoError(t, entries.Create(ctx, newEntry("u1", "P", "open", "c", 0)))

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Entries are not cascaded.
	list, err := entries.List(ctx, EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
