package database

import (
	"context"
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	guest := createTestUser(t, db, "guest@example.com")
	s := createTestSpace(t, db, owner.ID, nil)
	b := createTestBooking(t, db, guest.ID, s.ID, time.Now().Add(-48*time.Hour), 2, models.StatusCompleted)

	summary, err := db.RatingSummary(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.Average)
	assert.Equal(t, 0, summary.Count)

	clean := 4
	r := &models.Review{UserID: guest.ID, SpaceID: s.ID, BookingID: b.ID, Rating: 5, CleanlinessRating: &clean, Comment: "Great"}
	require.NoError(t, db.CreateReview(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	dup := &models.Review{UserID: guest.ID, SpaceID: s.ID, BookingID: b.ID, Rating: 1}
	assert.ErrorIs(t, db.CreateReview(ctx, dup), ErrAlreadyReviewed)

	reviews, err := db.ListReviewsForSpace(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Great", reviews[0].Comment)
	require.NotNil(t, reviews[0].CleanlinessRating)
	assert.Equal(t, 4, *reviews[0].CleanlinessRating)
	assert.Nil(t, reviews[0].ValueRating)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, guest.Email, reviews[0].User.Email)

	summary, err = db.RatingSummary(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, summary.Average)
	assert.Equal(t, 5.0, *summary.Average)
	assert.Equal(t, 1, summary.Count)
}

func TestFavorites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	guest := createTestUser(t, db, "guest@example.com")
	a := createTestSpace(t, db, owner.ID, nil)
	b := createTestSpace(t, db, owner.ID, nil)

	require.NoError(t, db.AddFavorite(ctx, guest.ID, a.ID))
	require.NoError(t, db.AddFavorite(ctx, guest.ID, a.ID))
	require.NoError(t, db.AddFavorite(ctx, guest.ID, b.ID))

	ids, err := db.FavoriteIDs(ctx, guest.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	spaces, err := db.ListFavoriteSpaces(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.Len(t, spaces[0].Pricing, 2)

	// inactive spaces drop out of the list
	require.NoError(t, db.SoftDeleteSpace(ctx, b.ID))
	ids, err = db.FavoriteIDs(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)

	require.NoError(t, db.RemoveFavorite(ctx, guest.ID, a.ID))
	require.NoError(t, db.RemoveFavorite(ctx, guest.ID, a.ID))
	ids, err = db.FavoriteIDs(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = db.AddFavorite(ctx, guest.ID, "missing")
	assert.Error(t, err)
}
