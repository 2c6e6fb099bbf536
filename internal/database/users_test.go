package database

import (
	"context"
	"testing"

	"spacehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u := &models.User{Name: "Ada", Email: "  Ada@Example.COM ", PasswordHash: "h", CompanyName: "Analytical"}
	require.NoError(t, db.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, models.UserTypeBoth, u.UserType)

	byEmail, err := db.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "Analytical", byEmail.CompanyName)

	u.Name = "Ada L."
	u.UserType = models.UserTypeHost
	require.NoError(t, db.UpdateUserProfile(ctx, u))

	byID, err := db.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", byID.Name)
	assert.Equal(t, models.UserTypeHost, byID.UserType)

	_, err = db.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.UpdateUserProfile(ctx, &models.User{ID: "missing"}), ErrNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "dup@example.com")
	err := db.CreateUser(ctx, &models.User{Name: "Other", Email: "DUP@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestTelegramLink(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := createTestUser(t, db, "first@example.com")
	second := createTestUser(t, db, "second@example.com")

	_, err := db.GetUserByTelegramChatID(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetTelegramChatID(ctx, first.ID, 555))
	linked, err := db.GetUserByTelegramChatID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, first.ID, linked.ID)
	assert.True(t, linked.TelegramLinked())

	// moving the chat to another account unlinks the first one
	require.NoError(t, db.SetTelegramChatID(ctx, second.ID, 555))
	linked, err = db.GetUserByTelegramChatID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, second.ID, linked.ID)

	reloaded, err := db.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.TelegramLinked())

	assert.ErrorIs(t, db.SetTelegramChatID(ctx, "missing", 1), ErrNotFound)
}
